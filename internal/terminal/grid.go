package terminal

import "strings"

// Grid is an in-memory Surface. Text written past the edges is clipped.
type Grid struct {
	cols      int
	lines     int
	cells     []rune
	pairs     []Pair
	refreshes int
}

// NewGrid allocates a blank grid.
func NewGrid(cols, lines int) *Grid {
	cols, lines = max(cols, 0), max(lines, 0)
	g := &Grid{
		cols:  cols,
		lines: lines,
		cells: make([]rune, cols*lines),
		pairs: make([]Pair, cols*lines),
	}
	for i := range g.cells {
		g.cells[i] = ' '
	}
	return g
}

func (g *Grid) Size() (int, int) { return g.cols, g.lines }

func (g *Grid) Put(row, col int, pair Pair, text string) {
	if row < 0 || row >= g.lines {
		return
	}
	for _, r := range text {
		if col >= 0 && col < g.cols {
			g.cells[row*g.cols+col] = r
			g.pairs[row*g.cols+col] = pair
		}
		col++
	}
}

func (g *Grid) Refresh() error {
	g.refreshes++
	return nil
}

func (g *Grid) Close() error { return nil }

// Line returns the text of one row.
func (g *Grid) Line(row int) string {
	if row < 0 || row >= g.lines {
		return ""
	}
	return string(g.cells[row*g.cols : (row+1)*g.cols])
}

// PairAt reports the colour pair of a cell.
func (g *Grid) PairAt(row, col int) Pair {
	if row < 0 || row >= g.lines || col < 0 || col >= g.cols {
		return PairBackground
	}
	return g.pairs[row*g.cols+col]
}

// Refreshes counts Refresh calls.
func (g *Grid) Refreshes() int { return g.refreshes }

// String joins all rows with newlines.
func (g *Grid) String() string {
	var b strings.Builder
	for row := 0; row < g.lines; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(g.Line(row))
	}
	return b.String()
}

var _ Surface = (*Grid)(nil)
