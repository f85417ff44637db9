// Package locate resolves conditioned shot numbers into physical row
// indices of one record store.
//
// The output of Build is a Relation (index, keys, mask) satisfying the
// alignment contract
//
//	keys[mask] == store.read(index, keyField)
//
// which every later stage of a read preserves. Three strategies produce the
// relation, selected by store layout; they are pure performance paths and
// must produce identical output for the same contents:
//
//  1. single key group: one equality test, no bulk read
//  2. contiguous keys: direct arithmetic offset from the first key
//  3. non-contiguous keys: read the cheaper of the front span or the back
//     span of the key column, or the whole column when neither is smaller,
//     and intersect
//
// Stores that interleave several device configurations (ConfigCount rows per
// shot, fixed repeating order) stretch every index by the configuration
// count and shift it by the configuration's slot.
package locate

import (
	"context"
	"fmt"

	"github.com/plasmalab/shotread/internal/store"
)

// Dataset names the store slice a relation is built against.
type Dataset struct {
	Store    store.RecordStore
	KeyField string
	// ConfigSlot is the row offset of this configuration inside each
	// shot's row group; 0 for single-configuration stores.
	ConfigSlot int64
	// ConfigCount is the number of rows each shot spans; 1 for
	// single-configuration stores.
	ConfigCount int64
}

func (ds Dataset) stride() int64 {
	if ds.ConfigCount < 1 {
		return 1
	}
	return ds.ConfigCount
}

// Relation aligns conditioned shot numbers with physical rows of one store.
// Mask[i] reports whether Keys[i] exists in the store; Index holds, in key
// order, the physical row of every masked-true key.
type Relation struct {
	Index []int64
	Keys  []int64
	Mask  []bool
}

// PresentKeys returns the keys the store actually has, in ascending order.
func (r Relation) PresentKeys() []int64 {
	out := make([]int64, 0, len(r.Index))
	for i, ok := range r.Mask {
		if ok {
			out = append(out, r.Keys[i])
		}
	}
	return out
}

// Build computes the relation between keys and ds. An all-false relation is
// a valid result meaning no requested key is present; errors are store read
// failures only.
func Build(ctx context.Context, keys []int64, ds Dataset) (Relation, error) {
	rel := Relation{
		Index: nil,
		Keys:  keys,
		Mask:  make([]bool, len(keys)),
	}
	if len(keys) == 0 {
		return rel, nil
	}

	stride := ds.stride()
	slot := ds.ConfigSlot
	groups := ds.Store.NumRows() / stride
	if groups == 0 {
		return rel, nil
	}

	if groups == 1 {
		// Only one possible shot number in the store.
		only, err := ds.Store.ReadKeySpan(ctx, ds.KeyField, slot, 1, 1)
		if err != nil {
			return Relation{}, fmt.Errorf("locate %s: %w", ds.Store.Name(), err)
		}
		for i, k := range keys {
			if k == only[0] {
				rel.Mask[i] = true
				rel.Index = append(rel.Index, slot)
			}
		}
		return rel, nil
	}

	first, last, err := Extent(ctx, ds)
	if err != nil {
		return Relation{}, err
	}

	if last-first+1 == groups {
		// Contiguous keys: row group is a direct offset from the first
		// key. Mask flags the in-bounds results.
		for i, k := range keys {
			g := k - first
			if g >= 0 && g < groups {
				rel.Mask[i] = true
				rel.Index = append(rel.Index, g*stride+slot)
			}
		}
		return rel, nil
	}

	// Non-contiguous keys: read the minimal span of the key column that can
	// contain the requested extremes, from whichever end is estimated
	// cheaper; fall back to the full column when no partial span wins.
	stepFront := keys[len(keys)-1] - first
	stepEnd := last - keys[0]

	var (
		span      []int64
		baseGroup int64
	)
	switch {
	case groups <= 1+min64(stepFront, stepEnd):
		span, err = ds.Store.ReadKeySpan(ctx, ds.KeyField, slot, groups, stride)
	case stepFront <= stepEnd:
		span, err = ds.Store.ReadKeySpan(ctx, ds.KeyField, slot, clampCount(stepFront+1, groups), stride)
	default:
		count := clampCount(stepEnd+1, groups)
		baseGroup = groups - count
		span, err = ds.Store.ReadKeySpan(ctx, ds.KeyField, baseGroup*stride+slot, count, stride)
	}
	if err != nil {
		return Relation{}, fmt.Errorf("locate %s: %w", ds.Store.Name(), err)
	}

	matchSpan(&rel, span, baseGroup, stride, slot)
	return rel, nil
}

// Extent reads the first and last key of the dataset's configuration
// slice. The caller must ensure the store is non-empty.
func Extent(ctx context.Context, ds Dataset) (first, last int64, err error) {
	stride := ds.stride()
	groups := ds.Store.NumRows() / stride
	f, err := ds.Store.ReadKeySpan(ctx, ds.KeyField, ds.ConfigSlot, 1, 1)
	if err != nil {
		return 0, 0, fmt.Errorf("locate %s: %w", ds.Store.Name(), err)
	}
	l, err := ds.Store.ReadKeySpan(ctx, ds.KeyField, (groups-1)*stride+ds.ConfigSlot, 1, 1)
	if err != nil {
		return 0, 0, fmt.Errorf("locate %s: %w", ds.Store.Name(), err)
	}
	return f[0], l[0], nil
}

// matchSpan intersects the requested keys with a span of store keys read
// starting at baseGroup. Both slices are ascending and duplicate-free, so a
// two-pointer sweep suffices.
func matchSpan(rel *Relation, span []int64, baseGroup, stride, slot int64) {
	i, j := 0, 0
	for i < len(rel.Keys) && j < len(span) {
		switch {
		case rel.Keys[i] == span[j]:
			rel.Mask[i] = true
			rel.Index = append(rel.Index, (baseGroup+int64(j))*stride+slot)
			i++
			j++
		case rel.Keys[i] < span[j]:
			i++
		default:
			j++
		}
	}
}

func clampCount(n, groups int64) int64 {
	if n < 0 {
		return 0
	}
	if n > groups {
		return groups
	}
	return n
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
