package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"sdfterm/raymarch/internal/shading"
)

const (
	frameMagic   = "SDFF"
	frameVersion = 1
	headerSize   = len(frameMagic) + 1 + 8 + 8 + 4 + 2 + 2
)

// ErrInvalidFrame is returned when an encoded frame cannot be decoded.
var ErrInvalidFrame = errors.New("frame: invalid encoding")

// Frame is an immutable record of one rendered image.
type Frame struct {
	Number    int64
	FixedTick int64
	FPS       int
	Width     int
	Height    int
	// Cells holds one ramp index per pixel in row-major order, -1 for a miss.
	Cells []int8
}

// NewFrame allocates a frame with every pixel marked as a miss.
func NewFrame(tick Tick, fps, width, height int) Frame {
	cells := make([]int8, width*height)
	for i := range cells {
		cells[i] = -1
	}
	return Frame{Number: tick.Frame, FixedTick: tick.Fixed, FPS: fps, Width: width, Height: height, Cells: cells}
}

// Set stores the shading outcome of pixel (x, y).
func (f Frame) Set(x, y int, result shading.Result) {
	f.Cells[y*f.Width+x] = int8(result.Index())
}

// At returns the shading outcome of pixel (x, y).
func (f Frame) At(x, y int) shading.Result {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return shading.Miss
	}
	return shading.ResultFromIndex(int(f.Cells[y*f.Width+x]))
}

// Hits counts pixels whose ray reached a surface.
func (f Frame) Hits() int {
	hits := 0
	for _, cell := range f.Cells {
		if cell >= 0 {
			hits++
		}
	}
	return hits
}

// Lines renders each pixel row as ramp glyphs, two characters per pixel.
func (f Frame) Lines() []string {
	lines := make([]string, f.Height)
	var b strings.Builder
	for y := 0; y < f.Height; y++ {
		b.Reset()
		for x := 0; x < f.Width; x++ {
			b.WriteString(f.At(x, y).Glyph())
		}
		lines[y] = b.String()
	}
	return lines
}

// MarshalBinary encodes the frame as a fixed header followed by one byte per cell.
func (f Frame) MarshalBinary() ([]byte, error) {
	if f.Width < 0 || f.Height < 0 || f.Width > math.MaxUint16 || f.Height > math.MaxUint16 {
		return nil, fmt.Errorf("frame: dimensions %dx%d out of range", f.Width, f.Height)
	}
	if len(f.Cells) != f.Width*f.Height {
		return nil, fmt.Errorf("frame: %d cells for %dx%d", len(f.Cells), f.Width, f.Height)
	}
	buf := bytes.NewBuffer(make([]byte, 0, headerSize+len(f.Cells)))
	buf.WriteString(frameMagic)
	buf.WriteByte(frameVersion)
	header := []any{
		f.Number,
		f.FixedTick,
		uint32(max(f.FPS, 0)),
		uint16(f.Width),
		uint16(f.Height),
		f.Cells,
	}
	for _, field := range header {
		if err := binary.Write(buf, binary.BigEndian, field); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a frame produced by MarshalBinary.
func (f *Frame) UnmarshalBinary(data []byte) error {
	if len(data) < headerSize || string(data[:len(frameMagic)]) != frameMagic {
		return ErrInvalidFrame
	}
	if data[len(frameMagic)] != frameVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidFrame, data[len(frameMagic)])
	}
	offset := len(frameMagic) + 1
	number := int64(binary.BigEndian.Uint64(data[offset:]))
	fixed := int64(binary.BigEndian.Uint64(data[offset+8:]))
	fps := binary.BigEndian.Uint32(data[offset+16:])
	width := int(binary.BigEndian.Uint16(data[offset+20:]))
	height := int(binary.BigEndian.Uint16(data[offset+22:]))

	body := data[headerSize:]
	if len(body) != width*height {
		return fmt.Errorf("%w: %d cells for %dx%d", ErrInvalidFrame, len(body), width, height)
	}
	cells := make([]int8, len(body))
	for i, b := range body {
		cells[i] = int8(b)
		if cells[i] < -1 || int(cells[i]) >= len(shading.Ramp) {
			return fmt.Errorf("%w: cell %d out of range", ErrInvalidFrame, cells[i])
		}
	}
	*f = Frame{Number: number, FixedTick: fixed, FPS: int(fps), Width: width, Height: height, Cells: cells}
	return nil
}
