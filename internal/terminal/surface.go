// Package terminal provides the character grids the renderer paints into.
package terminal

// Pair selects a foreground/background colour combination.
type Pair int

const (
	// PairBackground paints misses and overlay text, white on black.
	PairBackground Pair = iota
	// PairSolid paints surface hits, white on green.
	PairSolid
)

// Surface is a character cell grid addressed by row and column.
type Surface interface {
	// Size reports the grid dimensions; zero means unknown.
	Size() (cols, lines int)
	// Put paints text starting at (row, col) using the colour pair.
	Put(row, col int, pair Pair, text string)
	// Refresh flushes painted cells to the output device.
	Refresh() error
	// Close restores the device.
	Close() error
}

// Headless discards all output. The render pipeline still runs in full.
type Headless struct{}

func (Headless) Size() (int, int) { return 0, 0 }

func (Headless) Put(int, int, Pair, string) {}

func (Headless) Refresh() error { return nil }

func (Headless) Close() error { return nil }

var _ Surface = Headless{}
