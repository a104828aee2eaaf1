package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sdfterm/raymarch/internal/broadcast"
	"sdfterm/raymarch/internal/config"
	"sdfterm/raymarch/internal/frame"
	"sdfterm/raymarch/internal/logging"
	"sdfterm/raymarch/internal/replay"
	"sdfterm/raymarch/internal/snapshot"
	"sdfterm/raymarch/internal/terminal"
)

// replayRetention bounds the recordings kept under the replay directory.
var replayRetention = replay.RetentionPolicy{MaxRuns: 20, MaxAge: 7 * 24 * time.Hour}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logging:", err)
		os.Exit(2)
	}
	logging.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Error("renderer stopped", logging.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("renderer exited")
	_ = logger.Sync()
}

// run renders until ctx ends, the frame limit is reached or the user quits.
func run(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	//1.- Pick the surface; the terminal surface also reports the quit keys.
	var surface terminal.Surface = terminal.Headless{}
	if !cfg.Headless {
		tb, err := terminal.OpenTermbox()
		if err != nil {
			return err
		}
		defer tb.Close()
		go func() {
			select {
			case <-tb.Quit():
				cancel()
			case <-ctx.Done():
			}
		}()
		surface = tb
	}
	renderCfg := cfg.Render(surface.Size())
	logger.Info("renderer starting",
		logging.String("scene", renderCfg.Scene.String()),
		logging.Bool("rotate", renderCfg.Rotate),
		logging.Bool("angled", renderCfg.Angled),
		logging.Bool("orbit", renderCfg.Orbit),
		logging.Int("columns", renderCfg.Columns),
		logging.Int("lines", renderCfg.Lines),
	)

	hub := broadcast.NewHub(broadcast.DefaultBuffer)
	defer hub.Close()
	monitor := frame.NewMonitor()
	opts := []frame.Option{
		frame.WithLogger(logger),
		frame.WithMonitor(monitor),
		frame.WithObserver(hub),
	}

	//2.- Recording is optional; old runs are pruned before a new one starts.
	if cfg.ReplayDir != "" {
		recorder, err := startRecording(cfg.ReplayDir, renderCfg, logger)
		if err != nil {
			return err
		}
		defer stopRecording(recorder, monitor, logger)
		opts = append(opts, frame.WithObserver(recorder))
	}

	driver, err := frame.NewDriver(renderCfg, surface, opts...)
	if err != nil {
		return err
	}

	//3.- Spectator surfaces run beside the render loop and stop with it.
	stopSpectators, err := startSpectators(cfg, hub, monitor, logger)
	if err != nil {
		return err
	}
	defer stopSpectators()

	err = driver.Run(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	if cfg.SnapshotPath != "" {
		if latest, ok := hub.Latest(); ok {
			if snapErr := snapshot.WriteFile(cfg.SnapshotPath, latest); snapErr != nil {
				logger.Warn("snapshot failed", logging.Error(snapErr), logging.String("path", cfg.SnapshotPath))
			} else {
				logger.Info("snapshot written", logging.String("path", cfg.SnapshotPath), logging.Int64("frame", latest.Number))
			}
		}
	}
	return err
}

func startRecording(root string, renderCfg config.RenderConfig, logger *logging.Logger) (*replay.Writer, error) {
	stats, err := replay.Prune(root, replayRetention, time.Now(), logger)
	if err != nil {
		logger.Warn("replay retention sweep failed", logging.Error(err))
	} else if len(stats.Removed) > 0 {
		logger.Info("replay retention sweep", logging.Int("removed", len(stats.Removed)), logging.Int("kept", stats.Runs))
	}

	runID := renderCfg.Scene.String()
	if renderCfg.Rotate {
		runID += "rotate"
	}
	recorder, _, err := replay.NewWriter(root, runID, nil)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	recorder.SetLogger(logger)
	recorder.SetHeader(replay.Header{
		Scene:        renderCfg.Scene.String(),
		Rotate:       renderCfg.Rotate,
		Angled:       renderCfg.Angled,
		MovingLights: renderCfg.MovingLights,
		Width:        renderCfg.Columns / frame.ScaleX,
		Height:       renderCfg.Lines,
	})
	start := map[string]any{
		"scene":         renderCfg.Scene.String(),
		"rotate":        renderCfg.Rotate,
		"angled":        renderCfg.Angled,
		"moving_lights": renderCfg.MovingLights,
		"orbit":         renderCfg.Orbit,
		"columns":       renderCfg.Columns,
		"lines":         renderCfg.Lines,
	}
	if err := recorder.AppendEvent("start", 0, start); err != nil {
		logger.Warn("replay start event failed", logging.Error(err))
	}
	logger.Info("recording frames", logging.String("dir", recorder.Directory()))
	return recorder, nil
}

func stopRecording(recorder *replay.Writer, monitor *frame.Monitor, logger *logging.Logger) {
	stats := monitor.Snapshot()
	payload := map[string]any{
		"frames":            stats.Frames,
		"average_render_ms": float64(stats.AverageRender) / float64(time.Millisecond),
		"max_render_ms":     float64(stats.MaxRender) / float64(time.Millisecond),
	}
	if err := recorder.AppendEvent("stop", stats.FixedTick, payload); err != nil {
		logger.Warn("replay stop event failed", logging.Error(err))
	}
	if err := recorder.Close(); err != nil {
		logger.Warn("replay close failed", logging.Error(err))
	}
}
