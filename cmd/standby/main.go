package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"standby/config"
	"standby/internal/application"
	"standby/internal/domain"
	"standby/internal/infra/audio"
	"standby/internal/infra/feed"
)

// Exit codes, matching the conventions of the original tool: 0 the session
// completed (threshold or duration), 1 the user cancelled, 2 an error.
const (
	exitSuccess  = 0
	exitUserExit = 1
	exitError    = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to config file (optional)")
	device := flag.String("device", "", `audio input device name ("" = default)`)
	mode := flag.String("mode", "", "monitoring mode: detect, max or average")
	threshold := flag.Float64("threshold", 0, "detection threshold in dB (detect mode)")
	minDB := flag.Float64("min-db", 0, "dB floor for level clamping")
	channels := flag.String("channels", "", `channels to monitor (comma-separated indices, e.g. "0,1")`)
	duration := flag.Int("duration", 0, "session duration in whole seconds (0 = until cancelled)")
	quiet := flag.Bool("quiet", false, "suppress labels and the live meter")
	listDevices := flag.Bool("list-devices", false, "list input devices and exit")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			slog.Error("loading config", "error", err)
			return exitError
		}
		cfg = loaded
	}

	logger := setupLogger(cfg.Log)

	if *listDevices {
		return printDevices(logger)
	}

	// Flags override the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			cfg.Audio.Device = *device
		case "mode":
			cfg.Session.Mode = *mode
		case "threshold":
			cfg.Session.ThresholdDB = *threshold
		case "min-db":
			cfg.Session.MinDB = *minDB
		case "duration":
			cfg.Session.DurationSeconds = *duration
		case "quiet":
			cfg.Session.Quiet = *quiet
		}
	})
	if *channels != "" {
		parsed, err := parseChannels(*channels)
		if err != nil {
			logger.Error("invalid channel list", "error", err, "value", *channels)
			return exitError
		}
		cfg.Session.Channels = parsed
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return exitError
	}
	session, err := cfg.SessionSpec()
	if err != nil {
		logger.Error("invalid session", "error", err)
		return exitError
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	// Enter also cancels, so the tool works in a plain pipeline.
	go func() {
		reader := bufio.NewReader(os.Stdin)
		if _, err := reader.ReadString('\n'); err == nil {
			cancel()
		}
	}()

	source := audio.NewCaptureSource(cfg.Audio.Device, cfg.Audio.FramesPerBuffer, logger)

	var sink application.SnapshotSink = application.NoopSink{}
	if !session.Quiet {
		sink = &consoleMeter{out: os.Stderr}
	}

	monitor := application.NewMonitor(source, session, sink, logger)

	if cfg.Feed.Enabled {
		feedServer := feed.NewServer(cfg.Feed.Addr, cfg.Feed.AuthToken, monitor, logger)
		if err := feedServer.Start(ctx); err != nil {
			logger.Error("starting snapshot feed", "error", err)
			return exitError
		}
		defer feedServer.Stop()
	}

	result, err := monitor.Run(ctx)
	if !session.Quiet {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		var cfgErr *domain.ConfigError
		if errors.As(err, &cfgErr) {
			logger.Error("invalid session", "error", err)
		} else {
			logger.Error("session failed", "error", err)
		}
		return exitError
	}

	report(os.Stdout, session, result)

	switch result.Reason.Kind {
	case domain.ReasonUserCancelled:
		return exitUserExit
	case domain.ReasonDeviceError:
		return exitError
	default:
		return exitSuccess
	}
}

func parseChannels(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	channels := make([]int, 0, len(parts))
	for _, part := range parts {
		ch, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("parsing channel %q: %w", part, err)
		}
		channels = append(channels, ch)
	}
	return channels, nil
}

func printDevices(logger *slog.Logger) int {
	devices, err := audio.Devices()
	if err != nil {
		logger.Error("listing devices", "error", err)
		return exitError
	}
	for _, dev := range devices {
		fmt.Printf("%s (%d channels, %.0f Hz)\n", dev.Name, dev.MaxInputChannels, dev.DefaultSampleRate)
	}
	return exitSuccess
}

// report prints the structured session outcome. With quiet set only the
// numbers are printed, one value per line.
func report(out *os.File, session domain.Session, result *domain.Result) {
	switch session.Mode {
	case domain.ModeDetect:
		if result.Reason.Kind == domain.ReasonThresholdExceeded {
			if session.Quiet {
				fmt.Fprintf(out, "%d %.1f\n", result.Reason.Channel, result.Reason.DB)
			} else {
				fmt.Fprintf(out, "%s\n", result.Reason)
			}
			return
		}
		if !session.Quiet {
			fmt.Fprintf(out, "%s\n", result.Reason)
		}

	case domain.ModeMax:
		for _, ch := range result.Channels {
			if session.Quiet {
				fmt.Fprintf(out, "%.1f\n", ch.MaxDB)
			} else {
				fmt.Fprintf(out, "channel %d: max %.1f dB\n", ch.Channel, ch.MaxDB)
			}
		}

	case domain.ModeAverage:
		for _, ch := range result.Channels {
			if session.Quiet {
				fmt.Fprintf(out, "%.1f\n", ch.AverageDB)
			} else {
				fmt.Fprintf(out, "channel %d: average %.1f dB over %d blocks\n", ch.Channel, ch.AverageDB, ch.Blocks)
			}
		}
	}

	if result.DroppedBlocks > 0 && !session.Quiet {
		fmt.Fprintf(out, "dropped blocks: %d\n", result.DroppedBlocks)
	}
}

// consoleMeter is the render collaborator for the terminal: a single
// carriage-return line with the smoothed level per channel.
type consoleMeter struct {
	out *os.File
}

func (m *consoleMeter) Publish(snap *domain.Snapshot) {
	var b strings.Builder
	for i, ch := range snap.Channels {
		if i > 0 {
			b.WriteString("  ")
		}
		fmt.Fprintf(&b, "ch%d %6.1f dB", ch.Channel, ch.DisplayDB)
	}
	fmt.Fprintf(m.out, "\r%s  [%s]", b.String(), snap.Elapsed.Truncate(100*time.Millisecond))
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
