// Package shot conditions acquisition-key (shot number) requests.
//
// A raw request names shots as a single value, an explicit list, or a range
// that may be open at either end. Conditioning turns any of these into one
// canonical form: a sorted, de-duplicated slice of strictly positive keys.
// Open range bounds are resolved against the key extents of the stores
// participating in the read, and the resolution depends on the combination
// policy: an intersection read cannot contain anything before the latest
// first key, a union read starts at the earliest.
package shot

import (
	"errors"
	"fmt"
	"sort"
)

// Policy selects how per-store results are combined.
type Policy int

const (
	// Intersection keeps only shots present in every consulted store.
	Intersection Policy = iota
	// Union keeps every requested shot, fill-padding stores that lack it.
	Union
)

func (p Policy) String() string {
	if p == Union {
		return "union"
	}
	return "intersection"
}

// ErrEmpty reports that conditioning produced no usable shot numbers.
var ErrEmpty = errors.New("conditioned shot number set is empty")

type specKind int

const (
	kindAll specKind = iota
	kindSingle
	kindList
	kindRange
)

// Spec is a raw shot number request.
type Spec struct {
	kind  specKind
	one   int64
	list  []int64
	start int64 // 0 = open
	stop  int64 // 0 = open; exclusive otherwise
}

// All requests every shot the participating stores cover.
func All() Spec { return Spec{kind: kindAll} }

// Single requests one shot.
func Single(n int64) Spec { return Spec{kind: kindSingle, one: n} }

// List requests an explicit set of shots.
func List(ns ...int64) Spec { return Spec{kind: kindList, list: ns} }

// Range requests the half-open interval [start, stop). A start of 0 leaves
// the lower bound open; a stop of 0 leaves the upper bound open.
func Range(start, stop int64) Spec { return Spec{kind: kindRange, start: start, stop: stop} }

// String renders the request the way the CLI accepts it.
func (s Spec) String() string {
	switch s.kind {
	case kindAll:
		return "all"
	case kindSingle:
		return fmt.Sprintf("%d", s.one)
	case kindList:
		return fmt.Sprintf("%v", s.list)
	default:
		return fmt.Sprintf("%d:%d", s.start, s.stop)
	}
}

// Extents carries, per consulted store, the first and last key it holds.
// Both slices are parallel and non-empty for any read with participants.
type Extents struct {
	First []int64
	Last  []int64
}

// lower resolves an open lower range bound: an intersection read cannot
// produce rows before the latest first key, a union read may start at the
// earliest.
func (e Extents) lower(p Policy) int64 {
	if len(e.First) == 0 {
		return 1
	}
	bound := e.First[0]
	for _, f := range e.First[1:] {
		if p == Intersection && f > bound {
			bound = f
		}
		if p == Union && f < bound {
			bound = f
		}
	}
	return bound
}

// upper resolves an open upper bound to one past the largest last key.
func (e Extents) upper() int64 {
	var last int64
	for _, l := range e.Last {
		if l > last {
			last = l
		}
	}
	return last + 1
}

// Condition normalizes spec into a sorted, de-duplicated, strictly positive
// key slice. Values <= 0 are discarded silently. Returns ErrEmpty when
// nothing survives.
func Condition(spec Spec, ext Extents, pol Policy) ([]int64, error) {
	var keys []int64
	switch spec.kind {
	case kindSingle:
		keys = []int64{spec.one}
	case kindList:
		keys = append(keys, spec.list...)
	case kindAll:
		keys = expandRange(1, ext.upper())
	case kindRange:
		start, stop := spec.start, spec.stop
		if start <= 0 {
			start = ext.lower(pol)
		}
		if stop <= 0 {
			stop = ext.upper()
		}
		keys = expandRange(start, stop)
	}

	keys = conditionSlice(keys)
	if len(keys) == 0 {
		return nil, fmt.Errorf("spec %s: %w", spec, ErrEmpty)
	}
	return keys, nil
}

func expandRange(start, stop int64) []int64 {
	if start < 1 {
		start = 1
	}
	if stop <= start {
		return nil
	}
	keys := make([]int64, 0, stop-start)
	for n := start; n < stop; n++ {
		keys = append(keys, n)
	}
	return keys
}

// conditionSlice sorts, de-duplicates and drops non-positive values.
func conditionSlice(keys []int64) []int64 {
	out := make([]int64, 0, len(keys))
	for _, k := range keys {
		if k > 0 {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	dedup := out[:0]
	var prev int64
	for _, k := range out {
		if k != prev {
			dedup = append(dedup, k)
			prev = k
		}
	}
	return dedup
}
