package store

import (
	"context"
	"errors"
)

// Read errors shared by all RecordStore implementations.
var (
	// ErrUnknownColumn reports a read against a column the store does not
	// have.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrPartialColumn reports a column that exists but holds entries that
	// cannot be read as the requested type (NULLs in a SQLite dataset,
	// invalidated cells in a MemStore). The caller decides whether this is
	// fatal; for optional fields it degrades to a fill-valued column.
	ErrPartialColumn = errors.New("column has unreadable entries")
	// ErrIndexOutOfRange reports a row index outside the store.
	ErrIndexOutOfRange = errors.New("row index out of range")
)

// RecordStore is random read access to one device dataset.
//
// Row indices are zero-based. Index slices passed to the Read* methods must
// be ascending and duplicate-free, which is what the index locator produces.
// Implementations must not retain the slices.
type RecordStore interface {
	// Name identifies the dataset in errors and result metadata.
	Name() string

	// NumRows returns the total number of physical rows.
	NumRows() int64

	// HasColumn reports whether the dataset has the named column.
	HasColumn(name string) bool

	// ReadInt64 reads the column as signed integers at the given rows.
	ReadInt64(ctx context.Context, col string, idx []int64) ([]int64, error)

	// ReadUint64 reads the column as unsigned integers at the given rows.
	ReadUint64(ctx context.Context, col string, idx []int64) ([]uint64, error)

	// ReadFloat64 reads the column as floats at the given rows.
	ReadFloat64(ctx context.Context, col string, idx []int64) ([]float64, error)

	// ReadString reads the column as text at the given rows.
	ReadString(ctx context.Context, col string, idx []int64) ([]string, error)

	// ReadKeySpan reads count integer values from col starting at row
	// start, taking every stride-th row. It is the locator's bulk access
	// path for the key column; count may be zero.
	ReadKeySpan(ctx context.Context, col string, start, count, stride int64) ([]int64, error)
}
