// Package combine merges per-store locator relations into the final key set
// of a read.
//
// Under the intersection policy the final keys are the set intersection of
// every store's present keys with the conditioned request; every relation is
// then re-filtered to that set, so each ends up with an all-true mask. Under
// the union policy the conditioned keys pass through unchanged and each
// relation keeps its own mask, marking which result rows that store fills.
package combine

import (
	"errors"

	"github.com/plasmalab/shotread/internal/locate"
)

// ErrEmptyIntersection reports that no requested key is present in every
// consulted store.
var ErrEmptyIntersection = errors.New("no common shot numbers across requested stores")

// Intersect computes the final key set under the intersection policy and
// re-filters every relation to it. The returned relations all satisfy
// len(Index) == len(finalKeys) with an all-true mask.
func Intersect(keys []int64, rels []locate.Relation) ([]int64, []locate.Relation, error) {
	final := keys
	for _, rel := range rels {
		final = intersectSorted(final, rel.PresentKeys())
	}
	if len(final) == 0 {
		return nil, nil, ErrEmptyIntersection
	}

	out := make([]locate.Relation, len(rels))
	for n, rel := range rels {
		out[n] = refilter(rel, final)
	}
	return final, out, nil
}

// Unite computes the final key set under the union policy: the conditioned
// keys pass through, and each relation is rebased onto them unchanged.
func Unite(keys []int64, rels []locate.Relation) ([]int64, []locate.Relation) {
	return keys, rels
}

// refilter keeps only the index entries of rel whose key is in final and
// rebases the relation onto final with an all-true mask.
func refilter(rel locate.Relation, final []int64) locate.Relation {
	out := locate.Relation{
		Index: make([]int64, 0, len(final)),
		Keys:  final,
		Mask:  make([]bool, len(final)),
	}
	for i := range out.Mask {
		out.Mask[i] = true
	}

	// Walk the present keys of rel in order; their positions index into
	// rel.Index one-to-one.
	pos := 0
	j := 0
	for i, ok := range rel.Mask {
		if !ok {
			continue
		}
		k := rel.Keys[i]
		for j < len(final) && final[j] < k {
			j++
		}
		if j < len(final) && final[j] == k {
			out.Index = append(out.Index, rel.Index[pos])
		}
		pos++
	}
	return out
}

// intersectSorted intersects two ascending, duplicate-free slices.
func intersectSorted(a, b []int64) []int64 {
	out := make([]int64, 0, min(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return out
}
