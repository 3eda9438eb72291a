// SPDX-License-Identifier: MIT
package config

import "time"

// Reference values for the tuner pipeline. The acquisition side reads 3000
// sample chunks at 48 kHz into a one second rolling window; the display side
// runs at 60 frames per second.
const (
	DefaultSampleRate   = 48000
	DefaultChunkSize    = 3000
	DefaultBufferChunks = 16
	DefaultBufferLength = DefaultChunkSize * DefaultBufferChunks
	DefaultInputDevice  = MinDeviceID
	DefaultBackend      = BackendPortAudio
	DefaultToneFreq     = 440.0

	DefaultA4Frequency        = 440.0
	DefaultStrategy           = StrategyAutocorrelation
	DefaultFFTBackend         = FFTBackendGonum
	DefaultFPS                = 60
	DefaultQueueCapacity      = 64
	DefaultNeedleBufferLength = 30
	DefaultHitsTillNoteUpdate = 15
	DefaultInTuneThresholdHz  = 0.25
	DefaultSustainedHits      = 7
	DefaultHPSHarmonics       = 5
	DefaultMinFrequency       = 60.0
	DefaultFundamentalFloor   = 0.1
	DefaultLagMin             = 109
	DefaultLagOffset          = 1

	DefaultRecordingFile     = "capture.wav"
	DefaultUDPTargetAddress  = "127.0.0.1:9090"
	DefaultUDPSendInterval   = 33 * time.Millisecond
	DefaultWebSocketAddress  = "127.0.0.1:8080"
	DefaultMDNSServiceName   = "tuner"
	DefaultLogLevel          = "info"

	MinDeviceID   = -1 // -1 represents the system default device
	MinSampleRate = 8000
	MaxSampleRate = 192000
)

// Audio backends.
const (
	BackendPortAudio = "portaudio"
	BackendMalgo     = "malgo"
	BackendTone      = "tone"
	BackendFile      = "file"
)

// Pitch estimation strategies.
const (
	StrategyAutocorrelation = "autocorrelation"
	StrategyHPS             = "hps"
)

// FFT implementations used by the spectral strategy.
const (
	FFTBackendGonum = "gonum"
	FFTBackendGoDSP = "godsp"
)

// Config is the complete runtime configuration, assembled from defaults, an
// optional YAML file, environment overrides and finally command line flags.
type Config struct {
	Debug     bool            `yaml:"debug"`
	LogLevel  string          `yaml:"log_level"`
	LogFile   string          `yaml:"log_file"`          // Where log lines go while the UI owns the terminal.
	Command   string          `yaml:"command,omitempty"` // One-off command instead of running the tuner (e.g. "list").
	Audio     AudioConfig     `yaml:"audio"`
	Tuner     TunerConfig     `yaml:"tuner"`
	Recording RecordingConfig `yaml:"recording"`
	Transport TransportConfig `yaml:"transport"`
}

// AudioConfig describes where samples come from and how they are chunked.
// Sample rate, chunk size and buffer length are fixed once the pipeline is
// built.
type AudioConfig struct {
	Backend       string  `yaml:"backend"`        // portaudio, malgo, tone or file.
	InputDevice   int     `yaml:"input_device"`   // PortAudio device index (-1 for default).
	Pick          bool    `yaml:"pick"`           // Choose the device and rate interactively at startup.
	SampleRate    float64 `yaml:"sample_rate"`    // Hz.
	ChunkSize     int     `yaml:"chunk_size"`     // Samples per read.
	BufferLength  int     `yaml:"buffer_length"`  // Samples in the rolling window, a multiple of chunk_size.
	LowLatency    bool    `yaml:"low_latency"`    // Request the device's low input latency.
	InputFile     string  `yaml:"input_file"`     // WAV or MP3 file for the file backend.
	Loop          bool    `yaml:"loop"`           // Restart the file at end of stream.
	ToneFrequency float64 `yaml:"tone_frequency"` // Frequency of the tone backend.
	Realtime      bool    `yaml:"realtime"`       // Pace synthetic and file sources at the sample rate.
	GateThreshold float64 `yaml:"gate_threshold"` // 0.0-1.0 of full scale; chunks at or below it are "no signal".
}

// TunerConfig holds the estimator and display tracker settings.
type TunerConfig struct {
	A4Frequency        float64 `yaml:"a4_frequency"`
	Strategy           string  `yaml:"strategy"`    // autocorrelation or hps.
	FFTBackend         string  `yaml:"fft_backend"` // gonum or godsp.
	FPS                int     `yaml:"fps"`
	QueueCapacity      int     `yaml:"queue_capacity"`
	NeedleBufferLength int     `yaml:"needle_buffer_length"`
	HitsTillNoteUpdate int     `yaml:"hits_till_note_update"`
	InTuneThresholdHz  float64 `yaml:"in_tune_threshold_hz"`
	SustainedHits      int     `yaml:"sustained_hits"`
	HPSHarmonics       int     `yaml:"hps_harmonics"`
	MinFrequency       float64 `yaml:"min_frequency"`
	FundamentalFloor   float64 `yaml:"fundamental_floor"` // 0 disables the HPS candidate floor.
	LagMin             int     `yaml:"lag_min"`
	LagMax             int     `yaml:"lag_max"` // 0 means chunk_size / 2.
	LagOffset          int     `yaml:"lag_offset"`
	Headless           bool    `yaml:"headless"`
	FrameWarnings      bool    `yaml:"frame_warnings"` // Warn when a display frame overruns.
}

// RecordingConfig controls teeing captured audio to a WAV file.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	OutputFile string `yaml:"output_file"`
}

// TransportConfig controls publishing readings off-process.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`
	WebSocketAddress string        `yaml:"websocket_address"`
	UDPEnabled       bool          `yaml:"udp_enabled"`
	UDPTargetAddress string        `yaml:"udp_target_address"`
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`
	MDNSEnabled      bool          `yaml:"mdns_enabled"`
	MDNSServiceName  string        `yaml:"mdns_service_name"`
}

// NewConfig returns a Config populated with the reference defaults.
func NewConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			Backend:       DefaultBackend,
			InputDevice:   DefaultInputDevice,
			SampleRate:    DefaultSampleRate,
			ChunkSize:     DefaultChunkSize,
			BufferLength:  DefaultBufferLength,
			ToneFrequency: DefaultToneFreq,
			Realtime:      true,
		},
		Tuner: TunerConfig{
			A4Frequency:        DefaultA4Frequency,
			Strategy:           DefaultStrategy,
			FFTBackend:         DefaultFFTBackend,
			FPS:                DefaultFPS,
			QueueCapacity:      DefaultQueueCapacity,
			NeedleBufferLength: DefaultNeedleBufferLength,
			HitsTillNoteUpdate: DefaultHitsTillNoteUpdate,
			InTuneThresholdHz:  DefaultInTuneThresholdHz,
			SustainedHits:      DefaultSustainedHits,
			HPSHarmonics:       DefaultHPSHarmonics,
			MinFrequency:       DefaultMinFrequency,
			FundamentalFloor:   DefaultFundamentalFloor,
			LagMin:             DefaultLagMin,
			LagOffset:          DefaultLagOffset,
		},
		Recording: RecordingConfig{
			OutputFile: DefaultRecordingFile,
		},
		Transport: TransportConfig{
			WebSocketAddress: DefaultWebSocketAddress,
			UDPTargetAddress: DefaultUDPTargetAddress,
			UDPSendInterval:  DefaultUDPSendInterval,
			MDNSServiceName:  DefaultMDNSServiceName,
		},
	}
}
