package replay

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"

	"sdfterm/raymarch/internal/frame"
	"sdfterm/raymarch/internal/logging"
)

var runIDCleaner = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

const (
	// FlushInterval batches frames before they reach the zstd stream.
	FlushInterval = 200 * time.Millisecond

	manifestVersion = 1
	eventsFile      = "events.jsonl.sz"
	framesFile      = "frames.bin.zst"
	manifestFile    = "manifest.json"
	headerFile      = "header.json"
	recordHeaderLen = 8 + 8 + 8 + 4
)

// ErrWriterClosed is returned by appends after Close.
var ErrWriterClosed = errors.New("replay: writer closed")

type pendingFrame struct {
	number     int64
	fixedTick  int64
	capturedAt time.Time
	payload    []byte
}

// Manifest describes the bundle layout so tooling can locate artefacts.
type Manifest struct {
	Version         int    `json:"version"`
	CreatedAt       string `json:"created_at"`
	FrameIntervalMs int    `json:"frame_interval_ms"`
	EventsPath      string `json:"events_path"`
	FramesPath      string `json:"frames_path"`
}

// Writer records rendered frames and lifecycle events into a bundle directory.
type Writer struct {
	mu          sync.Mutex
	dir         string
	now         func() time.Time
	log         *logging.Logger
	eventFile   *os.File
	eventStream *snappy.Writer
	frameFile   *os.File
	frameStream *zstd.Encoder
	pending     []pendingFrame
	lastFlush   time.Time
	header      Header
	frames      int64
	closed      bool
}

// NewWriter creates <root>/<runID>-<timestamp> and opens the compressed sinks.
func NewWriter(root, runID string, clock func() time.Time) (*Writer, Manifest, error) {
	if root == "" {
		return nil, Manifest{}, fmt.Errorf("replay root must be provided")
	}
	if clock == nil {
		clock = time.Now
	}
	cleaned := runIDCleaner.ReplaceAllString(runID, "")
	if cleaned == "" {
		cleaned = "run"
	}
	created := clock().UTC()
	path := filepath.Join(root, fmt.Sprintf("%s-%s", cleaned, created.Format("20060102T150405Z")))
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, Manifest{}, err
	}

	eventFile, err := os.Create(filepath.Join(path, eventsFile))
	if err != nil {
		return nil, Manifest{}, err
	}
	eventStream := snappy.NewBufferedWriter(eventFile)

	frameFile, err := os.Create(filepath.Join(path, framesFile))
	if err != nil {
		eventFile.Close()
		return nil, Manifest{}, err
	}
	frameStream, err := zstd.NewWriter(frameFile, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		eventStream.Close()
		eventFile.Close()
		frameFile.Close()
		return nil, Manifest{}, err
	}

	manifest := Manifest{
		Version:         manifestVersion,
		CreatedAt:       created.Format(time.RFC3339Nano),
		FrameIntervalMs: int(frame.FrameTime / time.Millisecond),
		EventsPath:      eventsFile,
		FramesPath:      framesFile,
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err == nil {
		err = os.WriteFile(filepath.Join(path, manifestFile), data, 0o644)
	}
	if err != nil {
		frameStream.Close()
		frameFile.Close()
		eventStream.Close()
		eventFile.Close()
		return nil, Manifest{}, err
	}

	return &Writer{
		dir:         path,
		now:         clock,
		log:         logging.L(),
		eventFile:   eventFile,
		eventStream: eventStream,
		frameFile:   frameFile,
		frameStream: frameStream,
		header:      Header{SchemaVersion: HeaderSchemaVersion, FilePointer: manifestFile},
	}, manifest, nil
}

// Directory exposes the directory backing the bundle.
func (w *Writer) Directory() string {
	if w == nil {
		return ""
	}
	return w.dir
}

// SetLogger routes append failures reported by ObserveFrame.
func (w *Writer) SetLogger(logger *logging.Logger) {
	if w == nil || logger == nil {
		return
	}
	w.mu.Lock()
	w.log = logger
	w.mu.Unlock()
}

// SetHeader records the render settings written to header.json on Close.
func (w *Writer) SetHeader(header Header) {
	if w == nil {
		return
	}
	w.mu.Lock()
	header.SchemaVersion = HeaderSchemaVersion
	header.FilePointer = manifestFile
	w.header = header
	w.mu.Unlock()
}

// AppendEvent writes a single JSON line to the compressed event log.
func (w *Writer) AppendEvent(eventType string, fixedTick int64, payload any) error {
	if w == nil {
		return fmt.Errorf("writer not initialised")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", eventType, err)
	}
	captured := w.now().UTC()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWriterClosed
	}
	line, err := json.Marshal(struct {
		FixedTick  int64           `json:"fixed_tick"`
		CapturedAt string          `json:"captured_at"`
		Type       string          `json:"type"`
		Payload    json.RawMessage `json:"payload"`
	}{
		FixedTick:  fixedTick,
		CapturedAt: captured.Format(time.RFC3339Nano),
		Type:       eventType,
		Payload:    body,
	})
	if err != nil {
		return err
	}
	if _, err := w.eventStream.Write(append(line, '\n')); err != nil {
		return err
	}
	return w.eventStream.Flush()
}

// AppendFrame stages a rendered frame and flushes the batch once FlushInterval has passed.
func (w *Writer) AppendFrame(f frame.Frame) error {
	if w == nil {
		return fmt.Errorf("writer not initialised")
	}
	payload, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	captured := w.now().UTC()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWriterClosed
	}
	w.pending = append(w.pending, pendingFrame{number: f.Number, fixedTick: f.FixedTick, capturedAt: captured, payload: payload})
	w.frames++
	if w.lastFlush.IsZero() {
		w.lastFlush = captured
		return nil
	}
	if captured.Sub(w.lastFlush) >= FlushInterval {
		if err := w.flushLocked(); err != nil {
			return err
		}
		w.lastFlush = captured
	}
	return nil
}

// ObserveFrame records f, logging instead of failing the render loop.
func (w *Writer) ObserveFrame(f frame.Frame) {
	if err := w.AppendFrame(f); err != nil {
		w.log.Warn("replay frame dropped", logging.Error(err), logging.Int64("frame", f.Number))
	}
}

// Flush forces pending frames to be written regardless of cadence.
func (w *Writer) Flush() error {
	if w == nil {
		return fmt.Errorf("writer not initialised")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.flushLocked(); err != nil {
		return err
	}
	w.lastFlush = w.now().UTC()
	return nil
}

// Close writes the header, flushes every buffer and releases file handles.
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	//1.- Persist the header first so a failing stream still leaves the run discoverable.
	var firstErr error
	header := w.header
	header.FramesRecorded = w.frames
	if err := WriteHeader(filepath.Join(w.dir, headerFile), header); err != nil {
		firstErr = err
	}
	//2.- Attempt every flush and close, surfacing the first failure.
	for _, step := range []func() error{
		w.flushLocked,
		w.eventStream.Flush,
		w.eventStream.Close,
		w.eventFile.Close,
		w.frameStream.Close,
		w.frameFile.Close,
	} {
		if err := step(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// flushLocked writes length-prefixed frames to the zstd stream; callers hold the mutex.
func (w *Writer) flushLocked() error {
	if len(w.pending) == 0 {
		return nil
	}
	header := make([]byte, recordHeaderLen)
	for _, f := range w.pending {
		binary.LittleEndian.PutUint64(header[0:8], uint64(f.number))
		binary.LittleEndian.PutUint64(header[8:16], uint64(f.fixedTick))
		binary.LittleEndian.PutUint64(header[16:24], uint64(f.capturedAt.UnixNano()))
		binary.LittleEndian.PutUint32(header[24:28], uint32(len(f.payload)))
		if _, err := w.frameStream.Write(header); err != nil {
			return err
		}
		if _, err := w.frameStream.Write(f.payload); err != nil {
			return err
		}
	}
	w.pending = w.pending[:0]
	return nil
}

var _ frame.Observer = (*Writer)(nil)
