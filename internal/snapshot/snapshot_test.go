package snapshot

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/webp"

	"sdfterm/raymarch/internal/frame"
	"sdfterm/raymarch/internal/shading"
)

func litFrame() frame.Frame {
	f := frame.NewFrame(frame.Tick{Frame: 4}, 0, 2, 1)
	f.Set(0, 0, shading.Hit(9))
	return f
}

func TestEncodeProducesDecodableWebP(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, litFrame()); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	img, err := webp.Decode(&buf)
	if err != nil {
		t.Fatalf("webp.Decode: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 2*2*CellWidth || bounds.Dy() != CellHeight {
		t.Fatalf("unexpected bounds %v", bounds)
	}

	//1.- The hit pixel is tinted, the miss stays black.
	if r, _, _, _ := img.At(1, 0).RGBA(); r == 0 {
		t.Fatal("expected the hit cell to be tinted")
	}
	if r, g, b, _ := img.At(bounds.Dx()-1, 0).RGBA(); r != 0 || g != 0 || b != 0 {
		t.Fatal("expected the missed cell to stay black")
	}
}

func TestRenderDrawsGlyphs(t *testing.T) {
	img, err := Render(litFrame())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	white := 0
	for y := 0; y < CellHeight; y++ {
		for x := 0; x < 2*CellWidth; x++ {
			if img.RGBAAt(x, y).R == 0xff {
				white++
			}
		}
	}
	if white == 0 {
		t.Fatal("expected the brightest glyph to paint foreground pixels")
	}
}

func TestRenderRejectsEmptyFrame(t *testing.T) {
	if _, err := Render(frame.Frame{}); err == nil {
		t.Fatal("expected an empty frame to be rejected")
	}
}

func TestWriteFileCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "last.webp")
	if err := WriteFile(path, litFrame()); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if _, err := webp.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("decode written snapshot: %v", err)
	}
}
