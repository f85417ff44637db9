package table

import "fmt"

// ScalarKind identifies the element type of a column. The set is closed:
// the engine only materializes these four kinds.
type ScalarKind int

const (
	// KindInt64 is a signed integer column. Fill value is -99999.
	KindInt64 ScalarKind = iota
	// KindUint64 is an unsigned integer column. Fill value is 0.
	KindUint64
	// KindFloat64 is a floating point column. Fill value is NaN.
	KindFloat64
	// KindString is a text column. Fill value is the empty string.
	KindString
)

// FillInt64 is the sentinel written into signed integer columns for rows a
// source store does not cover under a union read.
const FillInt64 = -99999

// String returns the lowercase kind name used in definitions and renders.
func (k ScalarKind) String() string {
	switch k {
	case KindInt64:
		return "int64"
	case KindUint64:
		return "uint64"
	case KindFloat64:
		return "float64"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("ScalarKind(%d)", int(k))
	}
}

// ParseScalarKind maps a definition-file type name to a ScalarKind.
func ParseScalarKind(name string) (ScalarKind, error) {
	switch name {
	case "int64", "int":
		return KindInt64, nil
	case "uint64", "uint":
		return KindUint64, nil
	case "float64", "float":
		return KindFloat64, nil
	case "string", "str":
		return KindString, nil
	default:
		return 0, fmt.Errorf("unknown scalar kind %q", name)
	}
}

// Field describes one output column of a read: its semantic name, the source
// store columns that feed it, and its declared shape.
//
// Sources has exactly Width entries. An empty string marks a structurally
// absent source component: that slot of the output is zero-filled and no
// store read is issued for it.
type Field struct {
	Name    string
	Sources []string
	Width   int
	Kind    ScalarKind
}

// NonEmptySources counts the source components that name a real column.
func (f Field) NonEmptySources() int {
	n := 0
	for _, s := range f.Sources {
		if s != "" {
			n++
		}
	}
	return n
}

// Validate checks the structural consistency of a field descriptor.
func (f Field) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("field has no name")
	}
	if f.Width < 1 {
		return fmt.Errorf("field %q: width %d < 1", f.Name, f.Width)
	}
	if len(f.Sources) != f.Width {
		return fmt.Errorf("field %q: %d sources for width %d", f.Name, len(f.Sources), f.Width)
	}
	real := 0
	for _, s := range f.Sources {
		if s != "" {
			real++
		}
	}
	if real == 0 {
		return fmt.Errorf("field %q: no non-empty source column", f.Name)
	}
	return nil
}

// Warning is a non-fatal condition recovered during a read and reported to
// the caller alongside a complete result.
type Warning struct {
	Code    string
	Device  string
	Field   string
	Message string
}

// Warning codes.
const (
	// WarnDecodeFallback reports that no command pattern matched every
	// command string; the field falls back to the opaque command index.
	WarnDecodeFallback = "DECODE_FALLBACK"
	// WarnNoFillConcept reports a column kind with no defined fill value
	// under a union read; the column is left unfilled.
	WarnNoFillConcept = "NO_FILL_CONCEPT"
	// WarnPartialColumn reports a source column that is present but holds
	// unreadable entries; the whole field is fill-valued.
	WarnPartialColumn = "PARTIAL_COLUMN"
)

func (w Warning) String() string {
	s := w.Code
	if w.Device != "" {
		s += " device=" + w.Device
	}
	if w.Field != "" {
		s += " field=" + w.Field
	}
	if w.Message != "" {
		s += ": " + w.Message
	}
	return s
}
