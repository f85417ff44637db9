package combine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plasmalab/shotread/internal/locate"
	"github.com/plasmalab/shotread/internal/store"
)

func buildRel(t *testing.T, keys, stored []int64) locate.Relation {
	t.Helper()
	ms := store.NewMemStore("s").AddInt64("shotnum", stored)
	rel, err := locate.Build(context.Background(), keys, locate.Dataset{
		Store:       ms,
		KeyField:    "shotnum",
		ConfigCount: 1,
	})
	require.NoError(t, err)
	return rel
}

func TestIntersect(t *testing.T) {
	keys := []int64{10, 20, 30, 40}
	relA := buildRel(t, keys, []int64{10, 20, 30, 40, 50})
	relB := buildRel(t, keys, []int64{20, 30, 60})

	final, rels, err := Intersect(keys, []locate.Relation{relA, relB})
	require.NoError(t, err)
	assert.Equal(t, []int64{20, 30}, final)

	for _, rel := range rels {
		assert.Equal(t, final, rel.Keys)
		assert.Len(t, rel.Index, len(final))
		for _, ok := range rel.Mask {
			assert.True(t, ok)
		}
	}
	// Store A holds 10..50 contiguously, so 20 and 30 sit at rows 1 and 2.
	assert.Equal(t, []int64{1, 2}, rels[0].Index)
	// Store B holds 20 and 30 at rows 0 and 1.
	assert.Equal(t, []int64{0, 1}, rels[1].Index)
}

func TestIntersectEmpty(t *testing.T) {
	keys := []int64{10, 20}
	relA := buildRel(t, keys, []int64{10, 15})
	relB := buildRel(t, keys, []int64{20, 25})

	_, _, err := Intersect(keys, []locate.Relation{relA, relB})
	require.ErrorIs(t, err, ErrEmptyIntersection)
}

func TestIntersectSingleStore(t *testing.T) {
	keys := []int64{1, 2, 3}
	rel := buildRel(t, keys, []int64{2, 3, 4})

	final, rels, err := Intersect(keys, []locate.Relation{rel})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, final)
	assert.Equal(t, []int64{0, 1}, rels[0].Index)
}

func TestUnite(t *testing.T) {
	keys := []int64{10, 20, 30}
	rel := buildRel(t, keys, []int64{20})

	final, rels := Unite(keys, []locate.Relation{rel})
	assert.Equal(t, keys, final)
	assert.Equal(t, []bool{false, true, false}, rels[0].Mask)
	assert.Equal(t, []int64{0}, rels[0].Index)
}
