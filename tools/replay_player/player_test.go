package replayplayer

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/muesli/termenv"

	"sdfterm/raymarch/internal/frame"
	"sdfterm/raymarch/internal/replay"
	"sdfterm/raymarch/internal/shading"
)

func recordBundle(t *testing.T) *replay.Bundle {
	t.Helper()
	base := time.Date(2024, 7, 10, 15, 0, 0, 0, time.UTC)
	now := base
	clock := func() time.Time { return now }

	writer, _, err := replay.NewWriter(t.TempDir(), "Integration", clock)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	writer.SetHeader(replay.Header{SchemaVersion: replay.HeaderSchemaVersion, Scene: "sphere", Width: 2, Height: 1})
	if err := writer.AppendEvent("start", 0, map[string]string{"scene": "sphere"}); err != nil {
		t.Fatalf("append event: %v", err)
	}
	for i := int64(0); i < 2; i++ {
		f := frame.NewFrame(frame.Tick{Frame: i, Fixed: i}, 60, 2, 1)
		f.Set(0, 0, shading.Hit(9))
		if err := writer.AppendFrame(f); err != nil {
			t.Fatalf("append frame %d: %v", i, err)
		}
		now = now.Add(250 * time.Millisecond)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	bundle, err := replay.Open(writer.Directory())
	if err != nil {
		t.Fatalf("open bundle: %v", err)
	}
	return bundle
}

func TestPlayWritesFramesAndPaces(t *testing.T) {
	bundle := recordBundle(t)
	ascii := termenv.Ascii
	var slept []time.Duration
	var out bytes.Buffer

	summary, err := Play(context.Background(), bundle, &out, Options{
		Speed:   2,
		Profile: &ascii,
		Sleep:   func(d time.Duration) { slept = append(slept, d) },
	})
	if err != nil {
		t.Fatalf("Play: %v", err)
	}

	want := "00  \nframe=0 tick=0 fps=60\n00  \nframe=1 tick=1 fps=60\n"
	if out.String() != want {
		t.Fatalf("unexpected output %q", out.String())
	}
	if len(slept) != 1 || slept[0] != 125*time.Millisecond {
		t.Fatalf("expected one half-speed pause, got %v", slept)
	}
	if summary.Frames != 2 || summary.Events != 1 || summary.AverageHits != 1 || summary.Scene != "sphere" {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Duration != 250*time.Millisecond {
		t.Fatalf("unexpected duration %v", summary.Duration)
	}
}

func TestPlayColoursHitsWhenProfileAllows(t *testing.T) {
	bundle := recordBundle(t)
	profile := termenv.TrueColor
	var out bytes.Buffer
	if _, err := Play(context.Background(), bundle, &out, Options{Profile: &profile}); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if !strings.Contains(out.String(), "\x1b[") {
		t.Fatalf("expected ANSI colour sequences, got %q", out.String())
	}
}

func TestPlayStopsOnCancelledContext(t *testing.T) {
	bundle := recordBundle(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ascii := termenv.Ascii
	var out bytes.Buffer
	if _, err := Play(ctx, bundle, &out, Options{Profile: &ascii}); err == nil {
		t.Fatal("expected cancelled playback to report an error")
	}
	if out.Len() != 0 {
		t.Fatalf("expected no output, got %q", out.String())
	}
}
