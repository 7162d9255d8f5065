package codegen

// Code is the token stream produced for one straight-line segment. Every
// byte is a playfield character except the two construct tokens below, which
// the layout engine expands into multi-cell sequences that must not be split
// by a turn.
type Code []byte

const (
	// tokSelect consumes F T c and leaves c ? T : F.
	tokSelect = 'S'
	// tokGetchar reads one input character.
	tokGetchar = 'G'
)

// Segment is a dispatchable unit: the code that runs after the dispatch
// scan matches ID.
type Segment struct {
	ID   int
	Code Code
}

func (c *Code) raw(s string) { *c = append(*c, s...) }

func (c *Code) op(b byte) { *c = append(*c, b) }

func (c *Code) selectValue() { c.op(tokSelect) }

func (c *Code) getchar() { c.op(tokGetchar) }

// int pushes a constant.
func (c *Code) int(v int64) { c.raw(EncodeInt(v)) }

// EncodeInt returns the push sequence for v. The magnitude is written in
// base 9, most significant digit first, folding each further digit in with
// "9*" and an add; zero digits are skipped. Negative values start from 0 and
// subtract every digit.
func EncodeInt(v int64) string {
	op := byte('+')
	if v < 0 {
		v = -v
		op = '-'
	}

	var digits []byte
	for {
		digits = append(digits, byte(v%9))
		v /= 9
		if v == 0 {
			break
		}
	}

	var out []byte
	if op == '-' {
		out = append(out, '0')
	}
	for i := len(digits) - 1; i >= 0; i-- {
		first := i == len(digits)-1
		if !first {
			out = append(out, '9', '*')
		}
		d := digits[i]
		if d != 0 || len(digits) == 1 {
			out = append(out, '0'+d)
			if !first || op == '-' {
				out = append(out, op)
			}
		}
	}
	return string(out)
}
