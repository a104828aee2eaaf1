package main

import (
	"flag"
	"fmt"
	"os"

	"sdfterm/raymarch/tools/replay_catalog"
)

func main() {
	root := flag.String("dir", ".", "directory containing recordings")
	jsonFlag := flag.Bool("json", false, "emit JSON instead of human-readable output")
	flag.Parse()

	entries, err := replaycatalog.List(*root)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *jsonFlag {
		payload, err := replaycatalog.MarshalEntries(entries)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(string(payload))
		return
	}

	for _, entry := range entries {
		fmt.Printf("%s (schema %d)\n", entry.ManifestPath, entry.Header.SchemaVersion)
		fmt.Printf("  scene: %s\n", entry.Label())
		if entry.Header.Width > 0 && entry.Header.Height > 0 {
			fmt.Printf("  size: %dx%d\n", entry.Header.Width, entry.Header.Height)
		}
		fmt.Printf("  frames: %d\n", entry.Header.FramesRecorded)
		fmt.Printf("  header: %s\n", entry.HeaderPath)
	}
}
