package table

import (
	"math"
	"strconv"
	"strings"
)

// Column is the materialized storage for one output field. Storage is a flat
// slice in row-major order: row r, component c lives at r*Width+c. Exactly
// one backing slice is allocated, chosen by the field's kind.
type Column struct {
	field Field
	rows  int

	ints   []int64
	uints  []uint64
	floats []float64
	strs   []string
}

// NewColumn allocates a zero-valued column for f sized to rows.
// A kind outside the closed scalar set gets no backing storage; such a
// column has no fill concept and renders every cell as "?".
func NewColumn(f Field, rows int) *Column {
	c := &Column{field: f, rows: rows}
	n := rows * f.Width
	switch f.Kind {
	case KindInt64:
		c.ints = make([]int64, n)
	case KindUint64:
		c.uints = make([]uint64, n)
	case KindFloat64:
		c.floats = make([]float64, n)
	case KindString:
		c.strs = make([]string, n)
	}
	return c
}

// Field returns the descriptor this column was built from.
func (c *Column) Field() Field { return c.field }

// Rows returns the number of rows in the column.
func (c *Column) Rows() int { return c.rows }

func (c *Column) at(row, comp int) int { return row*c.field.Width + comp }

// SetInt64 writes one component of a signed integer column.
func (c *Column) SetInt64(row, comp int, v int64) { c.ints[c.at(row, comp)] = v }

// SetUint64 writes one component of an unsigned integer column.
func (c *Column) SetUint64(row, comp int, v uint64) { c.uints[c.at(row, comp)] = v }

// SetFloat64 writes one component of a floating point column.
func (c *Column) SetFloat64(row, comp int, v float64) { c.floats[c.at(row, comp)] = v }

// SetString writes one component of a text column.
func (c *Column) SetString(row, comp int, v string) { c.strs[c.at(row, comp)] = v }

// Int64s exposes the backing slice of a signed integer column.
func (c *Column) Int64s() []int64 { return c.ints }

// Uint64s exposes the backing slice of an unsigned integer column.
func (c *Column) Uint64s() []uint64 { return c.uints }

// Float64s exposes the backing slice of a floating point column.
func (c *Column) Float64s() []float64 { return c.floats }

// Strings exposes the backing slice of a text column.
func (c *Column) Strings() []string { return c.strs }

// Fill writes the kind's fill value across every component of row:
// -99999 for signed integers, 0 for unsigned integers, NaN for floats and
// the empty string for text. It reports false when the column's kind has no
// fill concept, in which case the row is left untouched.
func (c *Column) Fill(row int) bool {
	for comp := 0; comp < c.field.Width; comp++ {
		i := c.at(row, comp)
		switch c.field.Kind {
		case KindInt64:
			c.ints[i] = FillInt64
		case KindUint64:
			c.uints[i] = 0
		case KindFloat64:
			c.floats[i] = math.NaN()
		case KindString:
			c.strs[i] = ""
		default:
			return false
		}
	}
	return true
}

// IsFill reports whether every component of row holds the kind's fill value.
func (c *Column) IsFill(row int) bool {
	for comp := 0; comp < c.field.Width; comp++ {
		i := c.at(row, comp)
		switch c.field.Kind {
		case KindInt64:
			if c.ints[i] != FillInt64 {
				return false
			}
		case KindUint64:
			if c.uints[i] != 0 {
				return false
			}
		case KindFloat64:
			if !math.IsNaN(c.floats[i]) {
				return false
			}
		case KindString:
			if c.strs[i] != "" {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Cell renders row for display. Vector fields render as a bracketed,
// space-separated list.
func (c *Column) Cell(row int) string {
	if c.field.Width == 1 {
		return c.component(row, 0)
	}
	parts := make([]string, c.field.Width)
	for comp := 0; comp < c.field.Width; comp++ {
		parts[comp] = c.component(row, comp)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func (c *Column) component(row, comp int) string {
	i := c.at(row, comp)
	switch c.field.Kind {
	case KindInt64:
		return strconv.FormatInt(c.ints[i], 10)
	case KindUint64:
		return strconv.FormatUint(c.uints[i], 10)
	case KindFloat64:
		return strconv.FormatFloat(c.floats[i], 'g', -1, 64)
	case KindString:
		return c.strs[i]
	default:
		return "?"
	}
}
