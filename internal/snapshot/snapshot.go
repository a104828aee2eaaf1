// Package snapshot rasterises a rendered frame into a lossless WebP image.
package snapshot

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"os"
	"path/filepath"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"sdfterm/raymarch/internal/frame"
)

// Cell dimensions of one glyph in the bitmap face.
const (
	CellWidth  = 7
	CellHeight = 13
)

var (
	background = color.RGBA{A: 0xff}
	foreground = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// Render draws f the way the terminal shows it: every pixel becomes two glyph
// cells, white on black. Each hit cell is tinted by its ramp index.
func Render(f frame.Frame) (*image.RGBA, error) {
	if f.Width <= 0 || f.Height <= 0 {
		return nil, errors.New("snapshot: frame has no pixels")
	}
	img := image.NewRGBA(image.Rect(0, 0, f.Width*2*CellWidth, f.Height*CellHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Src: image.NewUniform(foreground), Face: face}
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			result := f.At(x, y)
			if !result.IsHit() {
				continue
			}
			//1.- Tint the two cells so brightness survives even for the blank glyph.
			cell := image.Rect(x*2*CellWidth, y*CellHeight, (x+1)*2*CellWidth, (y+1)*CellHeight)
			draw.Draw(img, cell, image.NewUniform(tint(result.Index())), image.Point{}, draw.Src)

			//2.- The baseline sits at the face ascent inside the cell.
			drawer.Dot = fixed.P(cell.Min.X, cell.Min.Y+face.Ascent)
			drawer.DrawString(result.Glyph())
		}
	}
	return img, nil
}

// Encode writes f to w as a lossless WebP image.
func Encode(w io.Writer, f frame.Frame) error {
	img, err := Render(f)
	if err != nil {
		return err
	}
	if err := nativewebp.Encode(w, img, nil); err != nil {
		return fmt.Errorf("snapshot: webp encode: %w", err)
	}
	return nil
}

// WriteFile encodes f into path, creating parent directories as needed.
func WriteFile(path string, f frame.Frame) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(out, f); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func tint(index int) color.RGBA {
	level := uint8(12 + index*8)
	return color.RGBA{R: level, G: level, B: level, A: 0xff}
}
