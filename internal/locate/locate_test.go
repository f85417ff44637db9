package locate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plasmalab/shotread/internal/store"
)

func keyStore(t *testing.T, name string, keys []int64) *store.MemStore {
	t.Helper()
	return store.NewMemStore(name).AddInt64("shotnum", keys)
}

// bruteRelation computes the relation by scanning the whole key column,
// ignoring every fast path. The fast paths must agree with it exactly.
func bruteRelation(t *testing.T, ctx context.Context, keys []int64, ds Dataset) Relation {
	t.Helper()
	stride := ds.ConfigCount
	if stride < 1 {
		stride = 1
	}
	groups := ds.Store.NumRows() / stride

	rel := Relation{Keys: keys, Mask: make([]bool, len(keys))}
	if groups == 0 {
		return rel
	}
	all, err := ds.Store.ReadKeySpan(ctx, ds.KeyField, ds.ConfigSlot, groups, stride)
	require.NoError(t, err)

	pos := map[int64]int64{}
	for g, k := range all {
		pos[k] = int64(g)
	}
	for i, k := range keys {
		if g, ok := pos[k]; ok {
			rel.Mask[i] = true
			rel.Index = append(rel.Index, g*stride+ds.ConfigSlot)
		}
	}
	return rel
}

// assertAligned verifies the alignment contract: reading the key column at
// the relation's indices returns exactly the masked-true keys, in order.
func assertAligned(t *testing.T, ctx context.Context, ds Dataset, rel Relation) {
	t.Helper()
	got, err := ds.Store.ReadInt64(ctx, ds.KeyField, rel.Index)
	require.NoError(t, err)
	assert.Equal(t, rel.PresentKeys(), got)
}

func TestBuildStrategiesAgree(t *testing.T) {
	ctx := context.Background()

	contiguous := make([]int64, 50)
	for i := range contiguous {
		contiguous[i] = int64(i + 1)
	}
	gapped := make([]int64, 0, 50)
	for k := int64(1); k <= 30; k++ {
		gapped = append(gapped, k)
	}
	for k := int64(41); k <= 60; k++ {
		gapped = append(gapped, k)
	}

	tests := []struct {
		name    string
		stored  []int64
		request []int64
	}{
		{"contiguous hit", contiguous, []int64{10, 20, 30}},
		{"contiguous partial", contiguous, []int64{45, 50, 55, 60}},
		{"contiguous miss", contiguous, []int64{100, 200}},
		{"gap front span", gapped, []int64{2, 5, 9}},
		{"gap back span", gapped, []int64{55, 58, 60}},
		{"gap full column", gapped, []int64{1, 60}},
		{"gap inside the hole", gapped, []int64{33, 36, 39}},
		{"single group", []int64{42}, []int64{41, 42, 43}},
		{"single group miss", []int64{42}, []int64{7}},
		{"request below range", gapped, []int64{70, 80}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := Dataset{
				Store:       keyStore(t, "ds", tt.stored),
				KeyField:    "shotnum",
				ConfigCount: 1,
			}
			rel, err := Build(ctx, tt.request, ds)
			require.NoError(t, err)

			want := bruteRelation(t, ctx, tt.request, ds)
			assert.Equal(t, want.Mask, rel.Mask)
			assert.Equal(t, want.Index, rel.Index)
			assertAligned(t, ctx, ds, rel)
		})
	}
}

func TestBuildEmptyStore(t *testing.T) {
	ctx := context.Background()
	ds := Dataset{
		Store:       store.NewMemStore("empty").AddInt64("shotnum", nil),
		KeyField:    "shotnum",
		ConfigCount: 1,
	}
	rel, err := Build(ctx, []int64{1, 2, 3}, ds)
	require.NoError(t, err)
	assert.Empty(t, rel.Index)
	assert.Equal(t, []bool{false, false, false}, rel.Mask)
}

func TestBuildMultiConfig(t *testing.T) {
	ctx := context.Background()
	// Three shots, two interleaved configurations: rows alternate.
	ms := store.NewMemStore("motor").
		AddInt64("shotnum", []int64{1, 1, 2, 2, 3, 3})

	for slot := int64(0); slot < 2; slot++ {
		ds := Dataset{
			Store:       ms,
			KeyField:    "shotnum",
			ConfigSlot:  slot,
			ConfigCount: 2,
		}
		rel, err := Build(ctx, []int64{1, 3, 9}, ds)
		require.NoError(t, err)

		assert.Equal(t, []bool{true, true, false}, rel.Mask)
		assert.Equal(t, []int64{0*2 + slot, 2*2 + slot}, rel.Index)
		assertAligned(t, ctx, ds, rel)
	}
}

func TestBuildMultiConfigGapped(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemStore("motor").
		AddInt64("shotnum", []int64{1, 1, 2, 2, 5, 5, 6, 6})

	ds := Dataset{
		Store:       ms,
		KeyField:    "shotnum",
		ConfigSlot:  1,
		ConfigCount: 2,
	}
	rel, err := Build(ctx, []int64{2, 3, 6}, ds)
	require.NoError(t, err)

	want := bruteRelation(t, ctx, []int64{2, 3, 6}, ds)
	assert.Equal(t, want.Mask, rel.Mask)
	assert.Equal(t, want.Index, rel.Index)
	assertAligned(t, ctx, ds, rel)
}

func TestExtent(t *testing.T) {
	ctx := context.Background()
	ds := Dataset{
		Store:       keyStore(t, "ds", []int64{5, 6, 7, 20}),
		KeyField:    "shotnum",
		ConfigCount: 1,
	}
	first, last, err := Extent(ctx, ds)
	require.NoError(t, err)
	assert.Equal(t, int64(5), first)
	assert.Equal(t, int64(20), last)
}
