package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// HeaderSchemaVersion tracks the schema version for replay header documents.
const HeaderSchemaVersion = 1

// Header describes the render settings a bundle was recorded with.
type Header struct {
	SchemaVersion  int    `json:"schema_version"`
	Scene          string `json:"scene"`
	Rotate         bool   `json:"rotate"`
	Angled         bool   `json:"angled"`
	MovingLights   bool   `json:"moving_lights"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	FramesRecorded int64  `json:"frames_recorded"`
	FilePointer    string `json:"file_pointer"`
}

// Validate ensures the header contains enough information for catalogue tooling.
func (h Header) Validate() error {
	if h.SchemaVersion <= 0 {
		return fmt.Errorf("schema_version must be positive")
	}
	if strings.TrimSpace(h.Scene) == "" {
		return fmt.Errorf("scene must not be empty")
	}
	if h.Width < 0 || h.Height < 0 {
		return fmt.Errorf("dimensions must be non-negative, got %dx%d", h.Width, h.Height)
	}
	if strings.TrimSpace(h.FilePointer) == "" {
		return fmt.Errorf("file_pointer must not be empty")
	}
	return nil
}

// WriteHeader persists the supplied header to the provided file path.
func WriteHeader(path string, header Header) error {
	if err := header.Validate(); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(header, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(payload, '\n'), 0o644)
}

// ReadHeader loads and decodes a replay header from disk.
func ReadHeader(path string) (Header, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Header{}, err
	}
	var header Header
	if err := json.Unmarshal(data, &header); err != nil {
		return Header{}, err
	}
	if err := header.Validate(); err != nil {
		return Header{}, fmt.Errorf("%s: %w", path, err)
	}
	return header, nil
}
