// Package replayplayer plays recorded frame bundles back onto a terminal.
package replayplayer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/muesli/termenv"

	"sdfterm/raymarch/internal/frame"
	"sdfterm/raymarch/internal/replay"
)

// Options tunes playback.
type Options struct {
	// Speed scales the recorded frame spacing; zero plays without pauses.
	Speed float64
	// Profile selects the colour capability of the output; nil detects it from w.
	Profile *termenv.Profile
	// Clear repaints in place instead of appending frames.
	Clear bool
	Sleep func(time.Duration)
}

// Summary describes what a playback covered.
type Summary struct {
	Frames      int           `json:"frames"`
	Events      int           `json:"events"`
	Duration    time.Duration `json:"duration"`
	AverageHits float64       `json:"average_hits"`
	Scene       string        `json:"scene,omitempty"`
}

// Summarise inspects a bundle without playing it.
func Summarise(bundle *replay.Bundle) Summary {
	summary := Summary{Frames: len(bundle.Frames), Events: len(bundle.Events), Scene: bundle.Header.Scene}
	if len(bundle.Frames) == 0 {
		return summary
	}
	hits := 0
	for _, record := range bundle.Frames {
		hits += record.Frame.Hits()
	}
	summary.AverageHits = float64(hits) / float64(len(bundle.Frames))
	summary.Duration = bundle.Frames[len(bundle.Frames)-1].CapturedAt.Sub(bundle.Frames[0].CapturedAt)
	return summary
}

// Play writes every recorded frame to w, shading each glyph by its ramp index.
func Play(ctx context.Context, bundle *replay.Bundle, w io.Writer, opts Options) (Summary, error) {
	if bundle == nil {
		return Summary{}, fmt.Errorf("bundle is required")
	}
	var out *termenv.Output
	if opts.Profile != nil {
		out = termenv.NewOutput(w, termenv.WithProfile(*opts.Profile))
	} else {
		out = termenv.NewOutput(w)
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	for i, record := range bundle.Frames {
		if err := ctx.Err(); err != nil {
			return Summarise(bundle), err
		}
		//1.- Honour the recorded spacing between frames, scaled by the requested speed.
		if i > 0 && opts.Speed > 0 {
			gap := record.CapturedAt.Sub(bundle.Frames[i-1].CapturedAt)
			if gap > 0 {
				sleep(time.Duration(float64(gap) / opts.Speed))
			}
		}
		if opts.Clear {
			out.ClearScreen()
			out.MoveCursor(1, 1)
		}
		if _, err := io.WriteString(out, paint(out, record.Frame)); err != nil {
			return Summarise(bundle), err
		}
	}
	return Summarise(bundle), nil
}

// paint renders one frame followed by a status line.
func paint(out *termenv.Output, f frame.Frame) string {
	var b strings.Builder
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			result := f.At(x, y)
			if !result.IsHit() {
				b.WriteString(result.Glyph())
				continue
			}
			b.WriteString(out.String(result.Glyph()).Foreground(shade(out, result.Index())).String())
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "frame=%d tick=%d fps=%d\n", f.Number, f.FixedTick, f.FPS)
	return b.String()
}

func shade(out *termenv.Output, index int) termenv.Color {
	level := 0x40 + index*0x14
	return out.Color(fmt.Sprintf("#%02x%02x%02x", level, level, level))
}
