// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"tuner/cmd"
	"tuner/internal/audio"
	"tuner/internal/config"
	applog "tuner/internal/log"
	"tuner/internal/transport"
	"tuner/internal/transport/udp"
	"tuner/internal/tui"
	"tuner/internal/tuner"
	"tuner/internal/tuning"
	"tuner/pkg/build"

	tea "github.com/charmbracelet/bubbletea"
)

// main is the entry point for the tuner.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase:
//   - Initialize build information
//   - Parse command line arguments and configuration
//   - Execute one-off commands if requested
//   - Open the audio source and publishing transports
//
// 2. Running Phase:
//   - Acquisition goroutine reads, gates and estimates
//   - Display loop polls estimates at the frame rate (TUI or headless)
//
// 3. Shutdown Phase:
//   - Triggered by SIGINT/SIGTERM, the quit key or end of input
//   - Stop acquisition, then publishers, then transports
func main() {
	// ==================== STARTUP PHASE ====================

	if err := build.Initialize(); err != nil {
		applog.Debugf("Development build: %v", err)
	}

	cfg, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		applog.Fatalf("%v", err)
	}
	if cfg == nil {
		return
	}

	if err := run(cfg); err != nil {
		applog.Fatalf("%v", err)
	}
}

func run(cfg *config.Config) error {
	// Handle one-off commands that don't require the pipeline.
	switch cfg.Command {
	case cmd.CommandVersion:
		fmt.Println(build.GetBuildInfo())
		return nil
	case cmd.CommandList:
		if err := audio.Initialize(); err != nil {
			return err
		}
		defer audio.Terminate()
		return audio.ListDevices(os.Stdout)
	}

	closeLog, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	if cfg.Audio.Pick {
		sel, ok, err := tui.PickDevice(audio.GetDevices)
		if err != nil {
			return fmt.Errorf("device picker: %w", err)
		}
		if !ok {
			return nil
		}
		cfg.Audio.InputDevice = sel.Device.ID
		cfg.Audio.SampleRate = sel.SampleRate
		applog.Infof("Selected device [%d] %s at %.0f Hz", sel.Device.ID, sel.Device.Name, sel.SampleRate)
	}

	if cfg.Audio.Backend == config.BackendPortAudio {
		if err := audio.Initialize(); err != nil {
			return err
		}
		defer audio.Terminate()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, err := audio.Open(cfg)
	if err != nil {
		return err
	}

	fanout := transport.NewFanout(transport.NewLoggingTransport())
	defer func() {
		if err := fanout.Close(); err != nil {
			applog.Warnf("Error closing transports: %v", err)
		}
	}()

	tn, err := tuner.New(cfg, source, fanout)
	if err != nil {
		return err
	}

	if cfg.Transport.WebSocketEnabled {
		ws, err := transport.NewWebSocketTransport(transport.WebSocketOptions{
			Address: cfg.Transport.WebSocketAddress,
			A4:      tn.A4,
		})
		if err != nil {
			tn.Stop()
			return err
		}
		fanout.Add(ws)

		if cfg.Transport.MDNSEnabled {
			adv, err := transport.NewAdvertiser(cfg.Transport.MDNSServiceName, ws.Port(),
				[]string{"path=/ws", "session=" + ws.Session()})
			if err != nil {
				// Discovery is a convenience; the endpoint still works without it.
				applog.Warnf("mDNS advertisement disabled: %v", err)
			} else {
				defer adv.Close()
			}
		}
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			tn.Stop()
			return err
		}
		defer sender.Close()

		publisher, err := udp.NewUDPPublisher(cfg.Transport.UDPSendInterval, sender, tn)
		if err != nil {
			tn.Stop()
			return err
		}
		publisher.Start()
		defer publisher.Stop()
	}

	// ==================== RUNNING PHASE ====================

	if err := tn.Start(); err != nil {
		tn.Stop()
		return err
	}

	if cfg.Tuner.Headless {
		err = runHeadless(ctx, cfg, tn)
	} else {
		err = runTUI(ctx, cfg, tn)
	}

	// ==================== SHUTDOWN PHASE ====================

	tn.Stop()

	stats := tn.Stats()
	applog.Infof("Tuner stopped: %d chunks, %d estimates, %d readings, %d gated, %d read errors, %d evicted",
		stats.Chunks, stats.Estimates, stats.Updates, stats.Gated, stats.ReadErrors, stats.Evicted)

	if cfg.Recording.Enabled {
		fmt.Printf("Recording saved to: %s\n", cfg.Recording.OutputFile)
	}

	return err
}

func runTUI(ctx context.Context, cfg *config.Config, tn *tuner.Tuner) error {
	p := tea.NewProgram(tui.NewTunerModel(tn, cfg.Tuner.FPS), tea.WithAltScreen())

	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("tuner display: %w", err)
	}
	if m, ok := final.(tui.TunerModel); ok && m.Ended() {
		applog.Infof("End of input")
	}
	return nil
}

// runHeadless prints a line whenever the displayed note or its tuning state
// changes.
func runHeadless(ctx context.Context, cfg *config.Config, tn *tuner.Tuner) error {
	var last tuning.Reading

	pacer := tuner.NewFrameTimer(cfg.Tuner.FPS, cfg.Tuner.FrameWarnings)
	err := tuner.Run(ctx, tn, pacer, func(r tuning.Reading) {
		if r.NearestNumber == last.NearestNumber && r.InTune == last.InTune && r.Sustained == last.Sustained {
			return
		}
		last = r

		mark := ""
		switch {
		case r.Sustained:
			mark = " *"
		case r.InTune:
			mark = " ok"
		}
		fmt.Printf("%-2s%d  %8.2f Hz  %s%s\n", r.NoteName, r.Octave, r.Frequency, r.CentsText, mark)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// setupLogging applies the configured level and output. The terminal UI owns
// the screen, so without a log file its output is discarded.
func setupLogging(cfg *config.Config) (func(), error) {
	if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	} else {
		applog.Warnf("Unknown log level %q, using %s", cfg.LogLevel, applog.GetLevel())
	}
	if cfg.Debug {
		applog.SetLevel(applog.LevelDebug)
	}

	if cfg.LogFile == "" {
		if cfg.Tuner.Headless {
			return func() {}, nil
		}
		applog.SetOutput(io.Discard)
		return func() { applog.SetOutput(os.Stderr) }, nil
	}

	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	applog.SetOutput(f)

	return func() {
		applog.SetOutput(os.Stderr)
		f.Close()
	}, nil
}
