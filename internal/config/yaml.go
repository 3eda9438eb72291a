// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	applog "tuner/internal/log"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file specified by path. If path
// is empty, it looks for "config.yaml" in the working directory and falls
// back to the built-in defaults when there is none. Environment overrides are
// applied afterwards and the result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		candidates := []string{"config.yaml"}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the invariants the pipeline relies on. All violations are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	a := c.Audio
	switch a.Backend {
	case BackendPortAudio, BackendMalgo, BackendTone:
	case BackendFile:
		if a.InputFile == "" {
			errs = append(errs, errors.New("audio.input_file must be set for the file backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("audio.backend %q is not one of portaudio, malgo, tone, file", a.Backend))
	}
	if a.InputDevice < MinDeviceID {
		errs = append(errs, fmt.Errorf("audio.input_device %d is invalid", a.InputDevice))
	}
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		errs = append(errs, fmt.Errorf("audio.sample_rate %.0f outside [%d, %d]", a.SampleRate, MinSampleRate, MaxSampleRate))
	}
	if a.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("audio.chunk_size must be positive, got %d", a.ChunkSize))
	} else if a.BufferLength < a.ChunkSize || a.BufferLength%a.ChunkSize != 0 {
		errs = append(errs, fmt.Errorf("audio.buffer_length %d must be a multiple of chunk_size %d", a.BufferLength, a.ChunkSize))
	}
	if a.Backend == BackendTone && a.ToneFrequency <= 0 {
		errs = append(errs, errors.New("audio.tone_frequency must be positive"))
	}
	if a.GateThreshold < 0 || a.GateThreshold > 1 {
		errs = append(errs, fmt.Errorf("audio.gate_threshold %.3f outside [0, 1]", a.GateThreshold))
	}

	t := c.Tuner
	if t.A4Frequency <= 0 {
		errs = append(errs, fmt.Errorf("tuner.a4_frequency must be positive, got %g", t.A4Frequency))
	}
	switch t.Strategy {
	case StrategyAutocorrelation, StrategyHPS:
	default:
		errs = append(errs, fmt.Errorf("tuner.strategy %q is not one of autocorrelation, hps", t.Strategy))
	}
	switch t.FFTBackend {
	case FFTBackendGonum, FFTBackendGoDSP:
	default:
		errs = append(errs, fmt.Errorf("tuner.fft_backend %q is not one of gonum, godsp", t.FFTBackend))
	}
	if t.FPS <= 0 {
		errs = append(errs, errors.New("tuner.fps must be positive"))
	}
	if t.QueueCapacity <= 0 {
		errs = append(errs, errors.New("tuner.queue_capacity must be positive"))
	}
	if t.NeedleBufferLength <= 0 {
		errs = append(errs, errors.New("tuner.needle_buffer_length must be positive"))
	}
	if t.HitsTillNoteUpdate <= 0 {
		errs = append(errs, errors.New("tuner.hits_till_note_update must be positive"))
	}
	if t.InTuneThresholdHz <= 0 {
		errs = append(errs, errors.New("tuner.in_tune_threshold_hz must be positive"))
	}
	if t.SustainedHits <= 0 {
		errs = append(errs, errors.New("tuner.sustained_hits must be positive"))
	}
	if t.HPSHarmonics < 1 {
		errs = append(errs, errors.New("tuner.hps_harmonics must be at least 1"))
	}
	if t.FundamentalFloor < 0 || t.FundamentalFloor >= 1 {
		errs = append(errs, fmt.Errorf("tuner.fundamental_floor %.3f outside [0, 1)", t.FundamentalFloor))
	}
	if a.ChunkSize > 0 && a.BufferLength >= a.ChunkSize {
		lo, hi := c.LagBounds()
		if lo < 1 || hi <= lo {
			errs = append(errs, fmt.Errorf("tuner lag range [%d, %d) is empty", lo, hi))
		}
		if t.LagOffset < 0 {
			errs = append(errs, errors.New("tuner.lag_offset must not be negative"))
		}
		// The largest lag must still fit a full window inside the buffer.
		if hi+t.LagOffset+c.WindowSize() > a.BufferLength+1 {
			errs = append(errs, fmt.Errorf("tuner.lag_max %d does not fit a %d sample window in a %d sample buffer",
				hi, c.WindowSize(), a.BufferLength))
		}
	}

	if c.Recording.Enabled && c.Recording.OutputFile == "" {
		errs = append(errs, errors.New("recording.output_file must be set when recording is enabled"))
	}

	tr := c.Transport
	if tr.UDPEnabled {
		if !strings.Contains(tr.UDPTargetAddress, ":") {
			errs = append(errs, fmt.Errorf("transport.udp_target_address %q appears invalid (missing port?)", tr.UDPTargetAddress))
		}
		if tr.UDPSendInterval <= 0 {
			errs = append(errs, errors.New("transport.udp_send_interval must be positive when UDP is enabled"))
		}
	}
	if (tr.WebSocketEnabled || tr.MDNSEnabled) && !strings.Contains(tr.WebSocketAddress, ":") {
		errs = append(errs, fmt.Errorf("transport.websocket_address %q appears invalid (missing port?)", tr.WebSocketAddress))
	}
	if tr.MDNSEnabled && !tr.WebSocketEnabled {
		errs = append(errs, errors.New("transport.mdns_enabled requires websocket_enabled"))
	}

	return errors.Join(errs...)
}

// applyEnvOverrides lets TUNER_* environment variables take precedence over
// the file. Unparseable values are ignored with a warning.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("TUNER_DEBUG"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Debug = b
			applog.Debugf("configuration: overriding debug from env: %v", b)
		} else {
			applog.Warnf("configuration: ignoring TUNER_DEBUG=%q: %v", val, err)
		}
	}
	if val, ok := os.LookupEnv("TUNER_LOG_LEVEL"); ok {
		c.LogLevel = val
	}
	if val, ok := os.LookupEnv("TUNER_A4"); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			c.Tuner.A4Frequency = f
			applog.Debugf("configuration: overriding tuner.a4_frequency from env: %g", f)
		} else {
			applog.Warnf("configuration: ignoring TUNER_A4=%q: %v", val, err)
		}
	}
	if val, ok := os.LookupEnv("TUNER_STRATEGY"); ok {
		c.Tuner.Strategy = strings.ToLower(val)
	}
	if val, ok := os.LookupEnv("TUNER_BACKEND"); ok {
		c.Audio.Backend = strings.ToLower(val)
	}

	if val, ok := os.LookupEnv("TUNER_UDP_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = b
			applog.Debugf("configuration: overriding transport.udp_enabled from env: %v", b)
		} else {
			applog.Warnf("configuration: ignoring TUNER_UDP_ENABLED=%q: %v", val, err)
		}
	}
	if val, ok := os.LookupEnv("TUNER_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
	}
	if val, ok := os.LookupEnv("TUNER_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = dur
		} else {
			applog.Warnf("configuration: ignoring TUNER_UDP_SEND_INTERVAL=%q: %v", val, err)
		}
	}
	if val, ok := os.LookupEnv("TUNER_WS_ADDRESS"); ok {
		c.Transport.WebSocketAddress = val
	}
}
