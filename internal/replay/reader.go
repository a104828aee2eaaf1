package replay

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"

	"sdfterm/raymarch/internal/frame"
)

// Event is a lifecycle record decoded from the event log.
type Event struct {
	FixedTick  int64           `json:"fixed_tick"`
	CapturedAt time.Time       `json:"captured_at"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
}

// Record is a frame decoded from the frame stream together with its capture time.
type Record struct {
	CapturedAt time.Time
	Frame      frame.Frame
}

// Bundle is a fully loaded recording.
type Bundle struct {
	Dir      string
	Manifest Manifest
	Header   Header
	Events   []Event
	Frames   []Record
}

// Open loads a bundle from its directory or its manifest.json path.
func Open(path string) (*Bundle, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("replay path must be provided")
	}
	manifestPath := path
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		manifestPath = filepath.Join(path, manifestFile)
	}
	dir := filepath.Dir(manifestPath)

	//1.- The manifest names the streams, so it is decoded first.
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, err
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if manifest.Version != manifestVersion {
		return nil, fmt.Errorf("unsupported manifest version %d", manifest.Version)
	}

	//2.- A bundle whose writer never closed has no header; its streams are still readable.
	header, err := ReadHeader(filepath.Join(dir, headerFile))
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	events, err := readEvents(filepath.Join(dir, manifest.EventsPath))
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	frames, err := readFrames(filepath.Join(dir, manifest.FramesPath))
	if err != nil {
		return nil, fmt.Errorf("read frames: %w", err)
	}
	return &Bundle{Dir: dir, Manifest: manifest, Header: header, Events: events, Frames: frames}, nil
}

func readEvents(path string) ([]Event, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(snappy.NewReader(file))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var events []Event
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var event Event
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, scanner.Err()
}

func readFrames(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder, err := zstd.NewReader(file)
	if err != nil {
		return nil, err
	}
	defer decoder.Close()

	var records []Record
	header := make([]byte, recordHeaderLen)
	for {
		if _, err := io.ReadFull(decoder, header); err != nil {
			if err == io.EOF {
				return records, nil
			}
			return nil, fmt.Errorf("record %d header: %w", len(records), err)
		}
		captured := int64(binary.LittleEndian.Uint64(header[16:24]))
		payload := make([]byte, binary.LittleEndian.Uint32(header[24:28]))
		if _, err := io.ReadFull(decoder, payload); err != nil {
			return nil, fmt.Errorf("record %d payload: %w", len(records), err)
		}
		var f frame.Frame
		if err := f.UnmarshalBinary(payload); err != nil {
			return nil, fmt.Errorf("record %d: %w", len(records), err)
		}
		if f.Number != int64(binary.LittleEndian.Uint64(header[0:8])) {
			return nil, fmt.Errorf("record %d: frame number does not match its header", len(records))
		}
		records = append(records, Record{CapturedAt: time.Unix(0, captured).UTC(), Frame: f})
	}
}
