package store

import (
	"context"
	"fmt"
)

type memColumn struct {
	ints    []int64
	uints   []uint64
	floats  []float64
	strs    []string
	invalid map[int64]bool
}

func (c *memColumn) len() int64 {
	switch {
	case c.ints != nil:
		return int64(len(c.ints))
	case c.uints != nil:
		return int64(len(c.uints))
	case c.floats != nil:
		return int64(len(c.floats))
	default:
		return int64(len(c.strs))
	}
}

// MemStore is an in-memory RecordStore used by tests and the scenario
// harness. Columns are added up front; all reads are pure slice access.
type MemStore struct {
	name string
	rows int64
	cols map[string]*memColumn
}

// NewMemStore creates an empty store. The row count is fixed by the first
// column added.
func NewMemStore(name string) *MemStore {
	return &MemStore{name: name, cols: make(map[string]*memColumn)}
}

func (s *MemStore) addColumn(name string, c *memColumn) *MemStore {
	if s.rows == 0 {
		s.rows = c.len()
	} else if c.len() != s.rows {
		panic(fmt.Sprintf("memstore %s: column %s has %d rows, store has %d",
			s.name, name, c.len(), s.rows))
	}
	s.cols[name] = c
	return s
}

// AddInt64 adds a signed integer column.
func (s *MemStore) AddInt64(name string, vals []int64) *MemStore {
	return s.addColumn(name, &memColumn{ints: vals})
}

// AddUint64 adds an unsigned integer column.
func (s *MemStore) AddUint64(name string, vals []uint64) *MemStore {
	return s.addColumn(name, &memColumn{uints: vals})
}

// AddFloat64 adds a floating point column.
func (s *MemStore) AddFloat64(name string, vals []float64) *MemStore {
	return s.addColumn(name, &memColumn{floats: vals})
}

// AddString adds a text column.
func (s *MemStore) AddString(name string, vals []string) *MemStore {
	return s.addColumn(name, &memColumn{strs: vals})
}

// Invalidate marks rows of a column as unreadable, so reads touching them
// fail with ErrPartialColumn. Used to exercise the partial-column recovery
// path.
func (s *MemStore) Invalidate(col string, rows ...int64) *MemStore {
	c, ok := s.cols[col]
	if !ok {
		panic(fmt.Sprintf("memstore %s: no column %s", s.name, col))
	}
	if c.invalid == nil {
		c.invalid = make(map[int64]bool)
	}
	for _, r := range rows {
		c.invalid[r] = true
	}
	return s
}

// Name implements RecordStore.
func (s *MemStore) Name() string { return s.name }

// NumRows implements RecordStore.
func (s *MemStore) NumRows() int64 { return s.rows }

// HasColumn implements RecordStore.
func (s *MemStore) HasColumn(name string) bool {
	_, ok := s.cols[name]
	return ok
}

func (s *MemStore) column(col string, idx []int64) (*memColumn, error) {
	c, ok := s.cols[col]
	if !ok {
		return nil, fmt.Errorf("%s: %q: %w", s.name, col, ErrUnknownColumn)
	}
	for _, i := range idx {
		if i < 0 || i >= s.rows {
			return nil, fmt.Errorf("%s: %q: row %d of %d: %w", s.name, col, i, s.rows, ErrIndexOutOfRange)
		}
		if c.invalid[i] {
			return nil, fmt.Errorf("%s: %q: row %d: %w", s.name, col, i, ErrPartialColumn)
		}
	}
	return c, nil
}

// ReadInt64 implements RecordStore.
func (s *MemStore) ReadInt64(_ context.Context, col string, idx []int64) ([]int64, error) {
	c, err := s.column(col, idx)
	if err != nil {
		return nil, err
	}
	out := make([]int64, len(idx))
	for n, i := range idx {
		switch {
		case c.ints != nil:
			out[n] = c.ints[i]
		case c.uints != nil:
			out[n] = int64(c.uints[i])
		case c.floats != nil:
			out[n] = int64(c.floats[i])
		default:
			return nil, fmt.Errorf("%s: %q is not numeric: %w", s.name, col, ErrPartialColumn)
		}
	}
	return out, nil
}

// ReadUint64 implements RecordStore.
func (s *MemStore) ReadUint64(_ context.Context, col string, idx []int64) ([]uint64, error) {
	c, err := s.column(col, idx)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, len(idx))
	for n, i := range idx {
		switch {
		case c.uints != nil:
			out[n] = c.uints[i]
		case c.ints != nil:
			out[n] = uint64(c.ints[i])
		default:
			return nil, fmt.Errorf("%s: %q is not numeric: %w", s.name, col, ErrPartialColumn)
		}
	}
	return out, nil
}

// ReadFloat64 implements RecordStore.
func (s *MemStore) ReadFloat64(_ context.Context, col string, idx []int64) ([]float64, error) {
	c, err := s.column(col, idx)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(idx))
	for n, i := range idx {
		switch {
		case c.floats != nil:
			out[n] = c.floats[i]
		case c.ints != nil:
			out[n] = float64(c.ints[i])
		case c.uints != nil:
			out[n] = float64(c.uints[i])
		default:
			return nil, fmt.Errorf("%s: %q is not numeric: %w", s.name, col, ErrPartialColumn)
		}
	}
	return out, nil
}

// ReadString implements RecordStore.
func (s *MemStore) ReadString(_ context.Context, col string, idx []int64) ([]string, error) {
	c, err := s.column(col, idx)
	if err != nil {
		return nil, err
	}
	if c.strs == nil {
		return nil, fmt.Errorf("%s: %q is not text: %w", s.name, col, ErrPartialColumn)
	}
	out := make([]string, len(idx))
	for n, i := range idx {
		out[n] = c.strs[i]
	}
	return out, nil
}

// ReadKeySpan implements RecordStore.
func (s *MemStore) ReadKeySpan(ctx context.Context, col string, start, count, stride int64) ([]int64, error) {
	if count <= 0 {
		return nil, nil
	}
	if stride < 1 {
		stride = 1
	}
	idx := make([]int64, 0, count)
	for k := int64(0); k < count; k++ {
		idx = append(idx, start+k*stride)
	}
	return s.ReadInt64(ctx, col, idx)
}
