package replay

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sdfterm/raymarch/internal/frame"
	"sdfterm/raymarch/internal/shading"
)

type stepClock struct {
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	current := c.now
	c.now = c.now.Add(c.step)
	return current
}

func testFrame(number int64, lit int) frame.Frame {
	f := frame.NewFrame(frame.Tick{Frame: number, Fixed: number * 2}, 60, 4, 3)
	f.Set(lit%4, lit/4, shading.Hit(7))
	return f
}

func TestWriterRoundTripsFramesAndEvents(t *testing.T) {
	root := t.TempDir()
	clock := &stepClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), step: 100 * time.Millisecond}
	writer, manifest, err := NewWriter(root, "box rotate!", clock.Now)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(writer.Directory()), "boxrotate-20240501T120000Z") {
		t.Fatalf("unexpected bundle directory %s", writer.Directory())
	}
	if manifest.FramesPath != "frames.bin.zst" || manifest.EventsPath != "events.jsonl.sz" {
		t.Fatalf("unexpected manifest %+v", manifest)
	}

	writer.SetHeader(Header{Scene: "box", Rotate: true, Angled: true, Width: 4, Height: 3})
	if err := writer.AppendEvent("start", 0, map[string]string{"scene": "box"}); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}
	for i := int64(1); i <= 5; i++ {
		writer.ObserveFrame(testFrame(i, int(i)))
	}
	if err := writer.AppendEvent("stop", 10, map[string]int{"frames": 5}); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	bundle, err := Open(writer.Directory())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if bundle.Header.Scene != "box" || bundle.Header.FramesRecorded != 5 || !bundle.Header.Rotate {
		t.Fatalf("unexpected header %+v", bundle.Header)
	}
	if len(bundle.Events) != 2 || bundle.Events[0].Type != "start" || bundle.Events[1].FixedTick != 10 {
		t.Fatalf("unexpected events %+v", bundle.Events)
	}
	var payload map[string]int
	if err := json.Unmarshal(bundle.Events[1].Payload, &payload); err != nil || payload["frames"] != 5 {
		t.Fatalf("unexpected stop payload %s (%v)", bundle.Events[1].Payload, err)
	}
	if len(bundle.Frames) != 5 {
		t.Fatalf("expected 5 frames, got %d", len(bundle.Frames))
	}
	for i, record := range bundle.Frames {
		want := testFrame(int64(i+1), i+1)
		if record.Frame.Number != want.Number || record.Frame.FixedTick != want.FixedTick {
			t.Fatalf("frame %d header mismatch: %+v", i, record.Frame)
		}
		if strings.Join(record.Frame.Lines(), "|") != strings.Join(want.Lines(), "|") {
			t.Fatalf("frame %d pixels mismatch", i)
		}
		if i > 0 && !record.CapturedAt.After(bundle.Frames[i-1].CapturedAt) {
			t.Fatalf("capture times not increasing at %d", i)
		}
	}
}

func TestWriterRejectsAppendsAfterClose(t *testing.T) {
	writer, _, err := NewWriter(t.TempDir(), "run", nil)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	writer.SetHeader(Header{Scene: "sphere"})
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := writer.AppendFrame(testFrame(1, 0)); !errors.Is(err, ErrWriterClosed) {
		t.Fatalf("expected ErrWriterClosed, got %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got %v", err)
	}
}

func TestOpenToleratesMissingHeader(t *testing.T) {
	writer, _, err := NewWriter(t.TempDir(), "crashed", nil)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := writer.AppendFrame(testFrame(1, 2)); err != nil {
		t.Fatalf("AppendFrame: %v", err)
	}
	if err := writer.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := writer.frameStream.Close(); err != nil {
		t.Fatalf("close frame stream: %v", err)
	}

	bundle, err := Open(filepath.Join(writer.Directory(), "manifest.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if bundle.Header.Scene != "" || len(bundle.Frames) != 1 {
		t.Fatalf("unexpected bundle %+v", bundle)
	}
}

func TestHeaderValidation(t *testing.T) {
	cases := map[string]Header{
		"schema":  {Scene: "box", FilePointer: "manifest.json"},
		"scene":   {SchemaVersion: 1, FilePointer: "manifest.json"},
		"size":    {SchemaVersion: 1, Scene: "box", Width: -1, FilePointer: "manifest.json"},
		"pointer": {SchemaVersion: 1, Scene: "box"},
	}
	for name, header := range cases {
		if err := header.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
	path := filepath.Join(t.TempDir(), "nested", "header.json")
	valid := Header{SchemaVersion: 1, Scene: "sphere", Width: 10, Height: 10, FilePointer: "manifest.json"}
	if err := WriteHeader(path, valid); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	got, err := ReadHeader(path)
	if err != nil || got != valid {
		t.Fatalf("ReadHeader = %+v, %v", got, err)
	}
}

func TestPruneKeepsNewestRuns(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"alpha", "bravo", "charlie"} {
		dir := filepath.Join(root, name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		manifest := filepath.Join(dir, "manifest.json")
		if err := os.WriteFile(manifest, []byte("{}"), 0o644); err != nil {
			t.Fatalf("write manifest: %v", err)
		}
		mod := now.Add(-time.Duration(3-i) * time.Hour)
		if err := os.Chtimes(manifest, mod, mod); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write stray file: %v", err)
	}

	stats, err := Prune(root, RetentionPolicy{MaxRuns: 1, MaxAge: 150 * time.Minute}, now, nil)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if stats.Runs != 1 || len(stats.Removed) != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if _, err := os.Stat(filepath.Join(root, "charlie")); err != nil {
		t.Fatalf("expected newest run to survive: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "notes.txt")); err != nil {
		t.Fatalf("stray files must be left alone: %v", err)
	}
}

func TestPruneMissingRootIsEmpty(t *testing.T) {
	stats, err := Prune(filepath.Join(t.TempDir(), "absent"), RetentionPolicy{MaxRuns: 1}, time.Now(), nil)
	if err != nil || stats.Runs != 0 {
		t.Fatalf("unexpected result %+v, %v", stats, err)
	}
}
