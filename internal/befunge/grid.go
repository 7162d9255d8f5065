// Package befunge models the target playfield: the Grid the code generator
// writes into, and an Interpreter that executes the finished program.
package befunge

import "strings"

// Width is the number of columns a standard playfield has.
const Width = 80

// Grid is a growable block of text rows. Cells that were never written read
// as spaces.
type Grid struct {
	rows [][]byte
}

// NewGrid creates an empty grid.
func NewGrid() *Grid {
	return &Grid{}
}

// Height returns the number of rows.
func (g *Grid) Height() int { return len(g.rows) }

// Width returns the length of the longest row.
func (g *Grid) Width() int {
	w := 0
	for _, r := range g.rows {
		w = max(w, len(r))
	}
	return w
}

// Put writes c at column x of row y, growing the grid as needed.
func (g *Grid) Put(x, y int, c byte) {
	for len(g.rows) <= y {
		g.rows = append(g.rows, nil)
	}
	row := g.rows[y]
	for len(row) <= x {
		row = append(row, ' ')
	}
	row[x] = c
	g.rows[y] = row
}

// PutString writes s starting at column x of row y, left to right.
func (g *Grid) PutString(x, y int, s string) {
	for i := 0; i < len(s); i++ {
		g.Put(x+i, y, s[i])
	}
}

// At returns the character at (x, y), or a space outside the written area.
func (g *Grid) At(x, y int) byte {
	if y < 0 || y >= len(g.rows) || x < 0 || x >= len(g.rows[y]) {
		return ' '
	}
	return g.rows[y][x]
}

// AppendLine adds a row below the current last row.
func (g *Grid) AppendLine(s string) {
	g.rows = append(g.rows, []byte(s))
}

// Row returns row y as a string.
func (g *Grid) Row(y int) string {
	if y < 0 || y >= len(g.rows) {
		return ""
	}
	return string(g.rows[y])
}

// Lines returns every row. Leading and trailing spaces are preserved.
func (g *Grid) Lines() []string {
	lines := make([]string, len(g.rows))
	for i, r := range g.rows {
		lines[i] = string(r)
	}
	return lines
}

// String joins the rows with newlines.
func (g *Grid) String() string {
	return strings.Join(g.Lines(), "\n") + "\n"
}
