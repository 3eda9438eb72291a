// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"strings"

	"tuner/internal/config"
	"tuner/pkg/build"

	"github.com/spf13/cobra"
)

// Commands selected through subcommands instead of running the tuner.
const (
	CommandList    = "list"
	CommandVersion = "version"
)

// flagValues holds the raw command line values. They are copied onto the
// loaded configuration only when the user actually set them, so a config
// file is never overridden by a flag default.
type flagValues struct {
	configPath   string
	device       int
	backend      string
	a4           float64
	strategy     string
	rate         float64
	chunk        int
	bufferChunks int
	input        string
	loop         bool
	tone         float64
	record       string
	headless     bool
	pick         bool
	ws           string
	udp          string
	mdns         bool
	logFile      string
	verbose      bool
}

// ParseArgs parses args into a configuration. A nil configuration with a nil
// error means cobra already handled the invocation (for example --help).
func ParseArgs(args []string) (*config.Config, error) {
	info := build.GetBuildInfo()

	var (
		cfg *config.Config
		fv  flagValues
	)

	rootCmd := &cobra.Command{
		Use:           info.Name,
		Short:         build.Description,
		Version:       info.Version,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := fv.load(cmd)
			if err != nil {
				return err
			}
			cfg = c
			return nil
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	rootCmd.AddCommand(&cobra.Command{
		Use:   CommandList,
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cfg = config.NewConfig()
			cfg.Command = CommandList
		},
	})

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   CommandVersion,
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cfg = config.NewConfig()
			cfg.Command = CommandVersion
		},
	})

	flags := rootCmd.Flags()

	flags.StringVar(&fv.configPath, "config", "",
		"YAML configuration file (default ./config.yaml when present)")

	// Audio Input
	flags.IntVarP(&fv.device, "device", "d", config.DefaultInputDevice,
		"Input device ID. Use 'list' command to see available devices.")
	flags.StringVarP(&fv.backend, "backend", "b", config.DefaultBackend,
		"Audio backend: portaudio, malgo, tone or file")
	flags.Float64VarP(&fv.rate, "rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	flags.IntVar(&fv.chunk, "chunk", config.DefaultChunkSize,
		"Samples per read (affects latency)")
	flags.IntVar(&fv.bufferChunks, "buffer-chunks", config.DefaultBufferChunks,
		"Chunks held in the analysis window")
	flags.StringVarP(&fv.input, "input", "i", "",
		"Analyse a WAV or MP3 file instead of a device")
	flags.BoolVar(&fv.loop, "loop", false,
		"Restart the input file when it ends")
	flags.Float64Var(&fv.tone, "tone", config.DefaultToneFreq,
		"Analyse a synthetic sine tone of this frequency")
	flags.BoolVar(&fv.pick, "pick", false,
		"Choose the input device and sample rate interactively")

	// Tuning
	flags.Float64Var(&fv.a4, "a4", config.DefaultA4Frequency,
		"Reference pitch of A4 in Hz")
	flags.StringVar(&fv.strategy, "strategy", config.DefaultStrategy,
		"Pitch estimator: autocorrelation or hps")
	flags.BoolVar(&fv.headless, "headless", false,
		"Print readings instead of running the terminal UI")

	// Recording
	flags.StringVarP(&fv.record, "record", "r", "",
		"Record the input to a WAV file (--record=path, default "+config.DefaultRecordingFile+")")
	flags.Lookup("record").NoOptDefVal = config.DefaultRecordingFile

	// Transports
	flags.StringVar(&fv.ws, "ws", "",
		"Broadcast readings over WebSocket (--ws=host:port, default "+config.DefaultWebSocketAddress+")")
	flags.Lookup("ws").NoOptDefVal = config.DefaultWebSocketAddress
	flags.StringVar(&fv.udp, "udp", "",
		"Send reading packets over UDP (--udp=host:port, default "+config.DefaultUDPTargetAddress+")")
	flags.Lookup("udp").NoOptDefVal = config.DefaultUDPTargetAddress
	flags.BoolVar(&fv.mdns, "mdns", false,
		"Advertise the WebSocket endpoint over mDNS")

	// Debug Configuration
	flags.StringVar(&fv.logFile, "log-file", "",
		"Write log output to this file")
	flags.BoolVarP(&fv.verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// load reads the configuration file, applies the flags that were set and
// validates the result.
func (fv *flagValues) load(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()

	cfg, err := config.LoadConfig(fv.configPath)
	if err != nil {
		return nil, err
	}

	a := &cfg.Audio
	if flags.Changed("device") {
		a.InputDevice = fv.device
	}
	if flags.Changed("rate") {
		a.SampleRate = fv.rate
	}
	if flags.Changed("chunk") {
		// Keep the window the same number of chunks long.
		chunks := a.BufferLength / max(a.ChunkSize, 1)
		a.ChunkSize = fv.chunk
		a.BufferLength = fv.chunk * max(chunks, 1)
	}
	if flags.Changed("buffer-chunks") {
		a.BufferLength = a.ChunkSize * fv.bufferChunks
	}
	if flags.Changed("input") {
		a.InputFile = fv.input
		a.Backend = config.BackendFile
	}
	if flags.Changed("loop") {
		a.Loop = fv.loop
	}
	if flags.Changed("tone") {
		a.ToneFrequency = fv.tone
		a.Backend = config.BackendTone
	}
	if flags.Changed("pick") {
		a.Pick = fv.pick
		a.Backend = config.BackendPortAudio
	}
	if flags.Changed("backend") {
		a.Backend = strings.ToLower(fv.backend)
	}

	t := &cfg.Tuner
	if flags.Changed("a4") {
		t.A4Frequency = fv.a4
	}
	if flags.Changed("strategy") {
		t.Strategy = strings.ToLower(fv.strategy)
	}
	if flags.Changed("headless") {
		t.Headless = fv.headless
	}

	if flags.Changed("record") {
		cfg.Recording.Enabled = true
		cfg.Recording.OutputFile = fv.record
	}

	tr := &cfg.Transport
	if flags.Changed("ws") {
		tr.WebSocketEnabled = true
		tr.WebSocketAddress = fv.ws
	}
	if flags.Changed("udp") {
		tr.UDPEnabled = true
		tr.UDPTargetAddress = fv.udp
	}
	if flags.Changed("mdns") {
		tr.MDNSEnabled = fv.mdns
		if fv.mdns {
			tr.WebSocketEnabled = true
		}
	}

	if flags.Changed("log-file") {
		cfg.LogFile = fv.logFile
	}
	if flags.Changed("verbose") && fv.verbose {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
