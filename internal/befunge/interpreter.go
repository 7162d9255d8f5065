package befunge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strconv"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("befc.befunge")

// ErrStepLimit is returned when a program runs longer than its step budget.
var ErrStepLimit = errors.New("befunge: step limit exceeded")

// DefaultStepLimit bounds a run when no limit is configured.
const DefaultStepLimit = 200_000_000

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithInput sets the reader consumed by '~' and '&'.
func WithInput(r io.Reader) Option {
	return func(it *Interpreter) { it.in = bufio.NewReader(r) }
}

// WithOutput sets the writer fed by ',' and '.'.
func WithOutput(w io.Writer) Option {
	return func(it *Interpreter) { it.out = bufio.NewWriter(w) }
}

// WithStepLimit caps the number of executed cells. Zero or less means
// DefaultStepLimit.
func WithStepLimit(n int64) Option {
	return func(it *Interpreter) {
		if n > 0 {
			it.limit = n
		}
	}
}

type point struct{ x, y int32 }

// Interpreter executes a Befunge-93 program on an unbounded playfield.
// Cells hold wrapping 32-bit integers. Reading a cell outside the loaded
// program that was never written yields 0; the instruction pointer wraps at
// the program's width and height.
type Interpreter struct {
	program [][]int32
	far     map[point]int32
	width   int
	height  int

	stack  []int32
	x, y   int
	dx, dy int
	quoted bool

	in    *bufio.Reader
	out   *bufio.Writer
	steps int64
	limit int64
}

// New loads lines into a fresh interpreter.
func New(lines []string, opts ...Option) *Interpreter {
	width := Width
	for _, l := range lines {
		width = max(width, len(l))
	}
	height := max(1, len(lines))

	program := make([][]int32, height)
	for y := range program {
		row := make([]int32, width)
		for x := range row {
			row[x] = ' '
		}
		if y < len(lines) {
			for x := 0; x < len(lines[y]); x++ {
				row[x] = int32(lines[y][x])
			}
		}
		program[y] = row
	}

	it := &Interpreter{
		program: program,
		far:     make(map[point]int32),
		width:   width,
		height:  height,
		dx:      1,
		limit:   DefaultStepLimit,
	}
	for _, opt := range opts {
		opt(it)
	}
	if it.in == nil {
		it.in = bufio.NewReader(eofReader{})
	}
	if it.out == nil {
		it.out = bufio.NewWriter(io.Discard)
	}
	return it
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }

// Steps returns how many cells have been executed.
func (it *Interpreter) Steps() int64 { return it.steps }

// Stack returns a copy of the data stack, bottom first.
func (it *Interpreter) Stack() []int32 {
	return append([]int32(nil), it.stack...)
}

// Get reads a playfield cell.
func (it *Interpreter) Get(x, y int32) int32 {
	if x >= 0 && y >= 0 && int(y) < it.height && int(x) < it.width {
		return it.program[y][x]
	}
	return it.far[point{x, y}]
}

// Put writes a playfield cell.
func (it *Interpreter) Put(x, y, v int32) {
	if x >= 0 && y >= 0 && int(y) < it.height && int(x) < it.width {
		it.program[y][x] = v
		return
	}
	it.far[point{x, y}] = v
}

func (it *Interpreter) push(v int32) { it.stack = append(it.stack, v) }

func (it *Interpreter) pop() int32 {
	n := len(it.stack)
	if n == 0 {
		return 0
	}
	v := it.stack[n-1]
	it.stack = it.stack[:n-1]
	return v
}

func (it *Interpreter) advance() {
	it.x = (it.x + it.dx + it.width) % it.width
	it.y = (it.y + it.dy + it.height) % it.height
}

// Run executes until '@', an error, the step limit, or cancellation of ctx.
// Output is flushed before returning.
func (it *Interpreter) Run(ctx context.Context) (err error) {
	defer func() {
		if ferr := it.out.Flush(); err == nil {
			err = ferr
		}
	}()

	for {
		if it.steps&0xffff == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if it.steps >= it.limit {
			return ErrStepLimit
		}
		it.steps++

		done, err := it.step()
		if err != nil {
			return err
		}
		if done {
			log.Debugf("program finished after %d steps", it.steps)
			return nil
		}
		it.advance()
	}
}

func (it *Interpreter) step() (bool, error) {
	c := it.program[it.y][it.x]

	if it.quoted {
		if c == '"' {
			it.quoted = false
		} else {
			it.push(c)
		}
		return false, nil
	}

	switch {
	case c >= '0' && c <= '9':
		it.push(c - '0')
		return false, nil
	}

	switch c {
	case ' ':
	case '+':
		b, a := it.pop(), it.pop()
		it.push(a + b)
	case '-':
		b, a := it.pop(), it.pop()
		it.push(a - b)
	case '*':
		b, a := it.pop(), it.pop()
		it.push(a * b)
	case '/':
		b, a := it.pop(), it.pop()
		if b == 0 {
			it.push(0)
		} else {
			it.push(a / b)
		}
	case '%':
		b, a := it.pop(), it.pop()
		if b == 0 {
			it.push(0)
		} else {
			it.push(a % b)
		}
	case '!':
		if it.pop() == 0 {
			it.push(1)
		} else {
			it.push(0)
		}
	case '`':
		b, a := it.pop(), it.pop()
		if a > b {
			it.push(1)
		} else {
			it.push(0)
		}
	case '>':
		it.dx, it.dy = 1, 0
	case '<':
		it.dx, it.dy = -1, 0
	case '^':
		it.dx, it.dy = 0, -1
	case 'v':
		it.dx, it.dy = 0, 1
	case '?':
		dirs := [4][2]int{{1, 0}, {-1, 0}, {0, -1}, {0, 1}}
		d := dirs[rand.Intn(4)]
		it.dx, it.dy = d[0], d[1]
	case '_':
		if it.pop() == 0 {
			it.dx, it.dy = 1, 0
		} else {
			it.dx, it.dy = -1, 0
		}
	case '|':
		if it.pop() == 0 {
			it.dx, it.dy = 0, 1
		} else {
			it.dx, it.dy = 0, -1
		}
	case '"':
		it.quoted = true
	case ':':
		v := it.pop()
		it.push(v)
		it.push(v)
	case '\\':
		b, a := it.pop(), it.pop()
		it.push(b)
		it.push(a)
	case '$':
		it.pop()
	case '.':
		if _, err := it.out.WriteString(strconv.Itoa(int(it.pop())) + " "); err != nil {
			return false, err
		}
	case ',':
		if err := it.out.WriteByte(byte(it.pop())); err != nil {
			return false, err
		}
	case '#':
		it.advance()
	case 'g':
		y, x := it.pop(), it.pop()
		it.push(it.Get(x, y))
	case 'p':
		y, x, v := it.pop(), it.pop(), it.pop()
		it.Put(x, y, v)
	case '&':
		it.push(it.readInt())
	case '~':
		if err := it.out.Flush(); err != nil {
			return false, err
		}
		b, err := it.in.ReadByte()
		if err != nil {
			it.push(-1)
		} else {
			it.push(int32(b))
		}
	case '@':
		return true, nil
	default:
		return false, fmt.Errorf("befunge: unknown command %q at (%d, %d)", rune(c), it.x, it.y)
	}
	return false, nil
}

// readInt reads a decimal integer, skipping anything before it. EOF yields -1.
func (it *Interpreter) readInt() int32 {
	var digits []byte
	for {
		b, err := it.in.ReadByte()
		if err != nil {
			break
		}
		if (b >= '0' && b <= '9') || (b == '-' && len(digits) == 0) {
			digits = append(digits, b)
			continue
		}
		if len(digits) > 0 {
			break
		}
	}
	v, err := strconv.ParseInt(string(digits), 10, 32)
	if err != nil {
		return -1
	}
	return int32(v)
}
