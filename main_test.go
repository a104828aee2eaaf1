package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/webp"

	"sdfterm/raymarch/internal/config"
	"sdfterm/raymarch/internal/logging"
	"sdfterm/raymarch/internal/replay"
	"sdfterm/raymarch/internal/scene"
)

func headlessConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Scene:         scene.KindBox,
		Rotate:        true,
		Headless:      true,
		MaxFrames:     3,
		ReplayDir:     filepath.Join(dir, "replays"),
		SnapshotPath:  filepath.Join(dir, "last.webp"),
		WebSocketAddr: "127.0.0.1:0",
		GRPCAddr:      "127.0.0.1:0",
	}
}

func TestRunHeadlessRecordsAndSnapshots(t *testing.T) {
	cfg := headlessConfig(t)

	if err := run(context.Background(), cfg, logging.NewTestLogger()); err != nil {
		t.Fatalf("run: %v", err)
	}

	//1.- The recording holds every rendered frame plus the start and stop events.
	entries, err := os.ReadDir(cfg.ReplayDir)
	if err != nil {
		t.Fatalf("read replay dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one recording, got %d", len(entries))
	}
	bundle, err := replay.Open(filepath.Join(cfg.ReplayDir, entries[0].Name()))
	if err != nil {
		t.Fatalf("open recording: %v", err)
	}
	if len(bundle.Frames) != 3 {
		t.Fatalf("expected 3 recorded frames, got %d", len(bundle.Frames))
	}
	if bundle.Header.Scene != "box" || !bundle.Header.Rotate || bundle.Header.FramesRecorded != 3 {
		t.Fatalf("unexpected header %+v", bundle.Header)
	}
	if bundle.Header.Width != config.DefaultColumns/2 || bundle.Header.Height != config.DefaultLines {
		t.Fatalf("unexpected recorded size %dx%d", bundle.Header.Width, bundle.Header.Height)
	}
	if len(bundle.Events) != 2 || bundle.Events[0].Type != "start" || bundle.Events[1].Type != "stop" {
		t.Fatalf("unexpected events %+v", bundle.Events)
	}

	//2.- The last frame is exported as a WebP image.
	data, err := os.ReadFile(cfg.SnapshotPath)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if _, err := webp.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	cfg := headlessConfig(t)
	cfg.MaxFrames = 0
	cfg.ReplayDir = ""
	cfg.SnapshotPath = ""
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := run(ctx, cfg, logging.NewTestLogger()); err != nil {
		t.Fatalf("expected a clean stop, got %v", err)
	}
}

func TestRunRejectsInvalidListenAddress(t *testing.T) {
	cfg := headlessConfig(t)
	cfg.ReplayDir = ""
	cfg.WebSocketAddr = "127.0.0.1:99999"

	if err := run(context.Background(), cfg, logging.NewTestLogger()); err == nil {
		t.Fatal("expected an unusable listen address to fail")
	}
}
