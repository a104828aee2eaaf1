package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/muesli/termenv"

	"sdfterm/raymarch/internal/replay"
	"sdfterm/raymarch/tools/replay_player"
)

func main() {
	path := flag.String("path", "", "Path to a recording directory or manifest.json")
	jsonFlag := flag.Bool("json", false, "print a JSON summary instead of playing the frames")
	speed := flag.Float64("speed", 1, "playback speed multiplier; 0 plays without pauses")
	plain := flag.Bool("plain", false, "disable colour output")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "path flag is required")
		os.Exit(1)
	}

	bundle, err := replay.Open(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}

	if *jsonFlag {
		//1.- Emit the manifest, header and summary so callers can pipe the output elsewhere.
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		payload := struct {
			Manifest replay.Manifest      `json:"manifest"`
			Header   replay.Header        `json:"header"`
			Events   []replay.Event       `json:"events"`
			Summary  replayplayer.Summary `json:"summary"`
		}{bundle.Manifest, bundle.Header, bundle.Events, replayplayer.Summarise(bundle)}
		if err := enc.Encode(payload); err != nil {
			fmt.Fprintln(os.Stderr, "encode error:", err)
			os.Exit(3)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	opts := replayplayer.Options{Speed: *speed, Clear: true}
	if *plain {
		ascii := termenv.Ascii
		opts.Profile = &ascii
		opts.Clear = false
	}
	summary, err := replayplayer.Play(ctx, bundle, os.Stdout, opts)
	if err != nil && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(3)
	}
	fmt.Printf("played %d frames over %s\n", summary.Frames, summary.Duration)
}
