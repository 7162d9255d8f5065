package codegen

import "befc/internal/befunge"

// Code columns. The dispatch scan owns columns 0-9; segment code snakes
// between leftMargin and rightMargin.
const (
	leftMargin  = 10
	rightMargin = befunge.Width - 2
	// constructMargin keeps a multi-cell construct from reaching an edge.
	constructMargin = 19
	// tailColumn is the rightmost column the block tail may start at.
	tailColumn = 75
)

// Dispatch preamble. A segment is entered with the target id on the stack;
// the scan subtracts each passing block's id and falls into the first block
// where the difference is zero. Column 0 carries the scan downward and
// column 9 back upward.
var preamble = [3]string{
	">:#v_ >$",
	"v-1<>  1+^",
	"v   ^_^#:<",
}

const (
	selectRight = "> #0 #\\_$"
	selectLeft  = "<!#0 #\\_$"
	getcharCode = "#@~"
)

// layout places code onto the playfield row by row.
type layout struct {
	grid *befunge.Grid
}

func newLayout() *layout {
	return &layout{grid: befunge.NewGrid()}
}

// place snakes code from (leftMargin, oy), turning down at each margin. It
// returns the cell after the last token, the current row, and the direction.
func (l *layout) place(code Code, oy int) (x, y, dx int) {
	x, y, dx = leftMargin, oy, 1
	for _, t := range code {
		if t == tokSelect || t == tokGetchar {
			if dx == 1 && x > rightMargin-constructMargin {
				x, y, dx = l.turn(x, y, dx)
			} else if dx == -1 && x < leftMargin+constructMargin {
				x, y, dx = l.turn(x, y, dx)
			}
			seq := getcharCode
			if t == tokSelect {
				seq = selectRight
				if dx < 0 {
					seq = selectLeft
				}
			}
			for i := 0; i < len(seq); i++ {
				l.grid.Put(x, y, seq[i])
				x += dx
			}
			continue
		}

		if (dx == 1 && x == rightMargin) || (dx == -1 && x == leftMargin) {
			x, y, dx = l.turn(x, y, dx)
		}
		l.grid.Put(x, y, t)
		x += dx
	}
	return x, y, dx
}

// turn sends the pointer down one row and back the other way.
func (l *layout) turn(x, y, dx int) (int, int, int) {
	back := byte('<')
	if dx < 0 {
		back = '>'
	}
	l.grid.Put(x, y, 'v')
	l.grid.Put(x, y+1, back)
	return x - dx, y + 1, -dx
}

// emitSegment appends the preamble rows for seg and lays out its code. The
// tail compares the id on the stack with seg.ID: on a match it leaves a zero
// and runs the segment's successor, otherwise it rejoins the scan.
func (l *layout) emitSegment(seg Segment) {
	oy := l.grid.Height()
	for _, row := range preamble {
		l.grid.AppendLine(row)
	}

	code := make(Code, 0, len(seg.Code)+16)
	code = append(code, seg.Code...)
	code.int(int64(seg.ID))
	code.raw("-:0`!")

	x, y, dx := l.place(code, oy)
	if x > tailColumn {
		if dx > 0 {
			l.grid.Put(x, y, 'v')
			l.grid.Put(x, y+1, '<')
			y++
		}
		x = tailColumn
	}
	l.grid.Put(x, y, 'v')
	y = max(y+1, oy+2)
	l.grid.PutString(x, y, "_1-")

	if last := l.grid.Height() - 1; oy+3 != l.grid.Height() {
		l.grid.Put(0, last, 'v')
		l.grid.Put(9, last, '^')
	}
}

// emitSetup lays out the initialisation code on the top rows and steers the
// pointer into the dispatch scan.
func (l *layout) emitSetup(code Code) {
	x, y, dx := l.place(code, 0)
	if dx > 0 {
		l.turn(x, y, dx)
	}
	last := l.grid.Height() - 1
	l.grid.Put(6, last, '<')
	l.grid.Put(0, last, 'v')
}
