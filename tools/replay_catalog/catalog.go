// Package replaycatalog lists recorded frame bundles below a directory.
package replaycatalog

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sdfterm/raymarch/internal/replay"
)

// Entry captures a recording header alongside its resolved manifest path.
type Entry struct {
	HeaderPath   string        `json:"header_path"`
	ManifestPath string        `json:"manifest_path"`
	Header       replay.Header `json:"header"`
}

// Label summarises the render settings of the recording.
func (e Entry) Label() string {
	parts := []string{e.Header.Scene}
	if e.Header.Rotate {
		parts = append(parts, "rotating")
	}
	if e.Header.Angled {
		parts = append(parts, "angled")
	} else {
		parts = append(parts, "side")
	}
	if e.Header.MovingLights {
		parts = append(parts, "moving lights")
	}
	return strings.Join(parts, ", ")
}

// List walks the directory tree and returns parsed recording headers.
func List(root string) ([]Entry, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("root directory must be provided")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root must be a directory")
	}

	var entries []Entry
	//1.- Walk the directory tree searching for header documents.
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || d.Name() != "header.json" {
			return nil
		}
		header, err := replay.ReadHeader(path)
		if err != nil {
			return err
		}
		manifestPath := header.FilePointer
		if !filepath.IsAbs(manifestPath) {
			manifestPath = filepath.Join(filepath.Dir(path), manifestPath)
		}
		entries = append(entries, Entry{HeaderPath: path, ManifestPath: manifestPath, Header: header})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Header.Scene == entries[j].Header.Scene {
			return entries[i].ManifestPath < entries[j].ManifestPath
		}
		return entries[i].Header.Scene < entries[j].Header.Scene
	})
	return entries, nil
}

// MarshalEntries produces a stable JSON representation of the entries for CLI output.
func MarshalEntries(entries []Entry) ([]byte, error) {
	return json.MarshalIndent(entries, "", "  ")
}
