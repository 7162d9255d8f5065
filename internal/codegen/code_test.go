package codegen

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"befc/internal/befunge"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCode lays code out on an empty playfield, appends ".@" and returns what
// the program prints.
func runCode(t *testing.T, code Code) string {
	t.Helper()
	l := newLayout()
	code = append(code, ".@"...)
	l.place(code, 0)

	var out bytes.Buffer
	it := befunge.New(l.grid.Lines(), befunge.WithOutput(&out), befunge.WithStepLimit(100_000))
	require.NoError(t, it.Run(context.Background()))
	return out.String()
}

func TestEncodeInt(t *testing.T) {
	testCases := []struct {
		value    int64
		expected string
	}{
		{0, "0"},
		{5, "5"},
		{9, "19*"},
		{10, "19*1+"},
		{81, "19*9*"},
		{-5, "05-"},
		{-10, "01-9*1-"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, EncodeInt(tc.value), "EncodeInt(%d)", tc.value)
	}
}

func TestEncodeIntEvaluates(t *testing.T) {
	values := []int64{1<<31 - 1, -(1 << 31), 1 << 20, -(1 << 20), heapBase, globalBase}
	for v := int64(-3000); v <= 3000; v += 37 {
		values = append(values, v)
	}

	for _, v := range values {
		var code Code
		code.int(v)
		assert.NotContains(t, string(code), "S")
		assert.Equal(t, fmt.Sprintf("%d ", v), runCode(t, code), "EncodeInt(%d)", v)
	}
}

func TestEncodeIntUsesOnlyDigitsAndArithmetic(t *testing.T) {
	for v := int64(-500); v <= 500; v++ {
		s := EncodeInt(v)
		assert.Empty(t, strings.Trim(s, "012345678+-*9"), "EncodeInt(%d) = %q", v, s)
	}
}

func TestSlotAccess(t *testing.T) {
	var c Code
	c.load(bandLocal, 3)
	assert.Equal(t, "20g3+:9%\\9/g", string(c))

	c = nil
	c.store(bandPhi, 2)
	assert.Equal(t, EncodeInt(phiBase+2)+":9%9+9+\\9/p", string(c))

	c = nil
	c.make2D(bandMem)
	assert.Equal(t, ":9%9+\\9/", string(c))
}

func TestSelectToken(t *testing.T) {
	var c Code
	c.raw("57")
	c.op('0')
	c.selectValue()
	assert.Equal(t, "5 ", runCode(t, c))

	c = nil
	c.raw("57")
	c.op('3')
	c.selectValue()
	assert.Equal(t, "7 ", runCode(t, c))
}

func TestSelectAcrossTurns(t *testing.T) {
	var c Code
	c.op('0')
	for i := 0; i < 20; i++ {
		c.raw("1+57")
		c.op(byte('0' + i%2))
		c.selectValue()
		c.op('+')
	}

	// Ten picks of 5 and ten of 7, plus one per round.
	assert.Equal(t, "140 ", runCode(t, c))
}

func TestUnsignedBias(t *testing.T) {
	values := []int64{0, 1, 2, 1<<31 - 1, -(1 << 31), -2, -1}
	for _, a := range values {
		for _, b := range values {
			var c Code
			c.int(a)
			c.unsignedBias()
			c.int(b)
			c.unsignedBias()
			c.op('`')

			want := 0
			if uint32(a) > uint32(b) {
				want = 1
			}
			assert.Equal(t, fmt.Sprintf("%d ", want), runCode(t, c), "%d >u %d", a, b)
		}
	}
}
