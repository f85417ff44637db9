package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plasmalab/shotread/internal/store"
	"github.com/plasmalab/shotread/internal/table"
)

func waveformDef() DeviceDef {
	return DeviceDef{
		Name:  "Waveform",
		Kind:  "control",
		Table: "waveform",
		Fields: []FieldDef{
			{Name: "gain", Type: "int64"},
		},
	}
}

func waveformStore() *store.MemStore {
	return store.NewMemStore("waveform").
		AddInt64("shotnum", []int64{1, 2, 3}).
		AddInt64("gain", []int64{101, 102, 103})
}

func TestAddValidatesKeyColumn(t *testing.T) {
	r := New(nil)
	def := waveformDef()

	err := r.Add(def, store.NewMemStore("bare").AddInt64("gain", []int64{1}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key column")

	require.NoError(t, r.Add(def, waveformStore()))
	err = r.Add(def, waveformStore())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestDevicesPreservesOrder(t *testing.T) {
	r := New(nil)
	a, b := waveformDef(), waveformDef()
	b.Name = "Magnet"
	b.Table = "magnet"
	require.NoError(t, r.Add(a, waveformStore()))
	require.NoError(t, r.Add(b, waveformStore()))

	defs := r.Devices()
	require.Len(t, defs, 2)
	assert.Equal(t, "Waveform", defs[0].Name)
	assert.Equal(t, "Magnet", defs[1].Name)
}

func TestResolveSingleConfiguration(t *testing.T) {
	ctx := context.Background()
	r := New(nil)
	require.NoError(t, r.Add(waveformDef(), waveformStore()))

	res, err := r.Resolve(ctx, "Waveform", "")
	require.NoError(t, err)
	require.Equal(t, StatusResolved, res.Status)
	require.NotNil(t, res.Config)
	assert.Equal(t, "config01", res.Config.Config)
	assert.Equal(t, int64(0), res.Config.ConfigSlot)
	assert.Equal(t, int64(1), res.Config.ConfigCount)
	assert.Equal(t, "shotnum", res.Config.KeyField)
	require.Len(t, res.Config.Fields, 1)
	assert.Equal(t, table.KindInt64, res.Config.Fields[0].Kind)
}

func TestResolveVariants(t *testing.T) {
	ctx := context.Background()
	r := New(nil)
	def := waveformDef()
	def.Configs = []ConfigDef{{Name: "c1"}, {Name: "c2"}}
	require.NoError(t, r.Add(def, waveformStore()))

	t.Run("unknown device", func(t *testing.T) {
		res, err := r.Resolve(ctx, "Ghost", "")
		require.NoError(t, err)
		assert.Equal(t, StatusNotFound, res.Status)
		assert.Nil(t, res.Config)
	})

	t.Run("ambiguous without config name", func(t *testing.T) {
		res, err := r.Resolve(ctx, "Waveform", "")
		require.NoError(t, err)
		assert.Equal(t, StatusAmbiguous, res.Status)
		assert.Equal(t, []string{"c1", "c2"}, res.Choices)
	})

	t.Run("unknown configuration", func(t *testing.T) {
		res, err := r.Resolve(ctx, "Waveform", "c9")
		require.NoError(t, err)
		assert.Equal(t, StatusNotFound, res.Status)
		assert.Equal(t, []string{"c1", "c2"}, res.Choices)
	})

	t.Run("named configuration", func(t *testing.T) {
		res, err := r.Resolve(ctx, "Waveform", "c2")
		require.NoError(t, err)
		require.Equal(t, StatusResolved, res.Status)
		assert.Equal(t, "c2", res.Config.Config)
		assert.Equal(t, int64(2), res.Config.ConfigCount)
		// No configuration column in the store, so the declared order wins.
		assert.Equal(t, int64(1), res.Config.ConfigSlot)
	})
}

func TestResolveSlotFromConfigurationColumn(t *testing.T) {
	ctx := context.Background()
	// The store interleaves probe2 before probe1, contradicting the
	// declaration order; the store wins.
	ms := store.NewMemStore("motor").
		AddInt64("shotnum", []int64{1, 1, 2, 2}).
		AddString("configuration", []string{"probe2", "probe1", "probe2", "probe1"}).
		AddFloat64("xpos", []float64{20, 10, 21, 11})

	def := DeviceDef{
		Name:    "Compumotor",
		Kind:    "control",
		Table:   "motor",
		Configs: []ConfigDef{{Name: "probe1"}, {Name: "probe2"}},
		Fields:  []FieldDef{{Name: "xpos", Type: "float64"}},
	}
	r := New(nil)
	require.NoError(t, r.Add(def, ms))

	res, err := r.Resolve(ctx, "Compumotor", "probe1")
	require.NoError(t, err)
	require.Equal(t, StatusResolved, res.Status)
	assert.Equal(t, int64(1), res.Config.ConfigSlot)

	res, err = r.Resolve(ctx, "Compumotor", "probe2")
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Config.ConfigSlot)
}

func TestResolveCommandField(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemStore("waveform").
		AddInt64("shotnum", []int64{1, 2}).
		AddInt64("command_index", []int64{0, 1})

	def := DeviceDef{
		Name:  "Waveform",
		Kind:  "control",
		Table: "waveform",
		Configs: []ConfigDef{{
			Name:     "config01",
			Commands: []string{"FREQ 50000.0", "FREQ 60000.0"},
		}},
		Fields: []FieldDef{{
			Name:    "frequency",
			Type:    "float64",
			Sources: []string{"command_index"},
			Pattern: `(?P<frequency>FREQ\s+(?P<VAL>[0-9.]+))`,
		}},
	}
	r := New(nil)
	require.NoError(t, r.Add(def, ms))

	res, err := r.Resolve(ctx, "Waveform", "")
	require.NoError(t, err)
	require.Equal(t, StatusResolved, res.Status)

	tbl := res.Config.Commands["frequency"]
	require.NotNil(t, tbl)
	assert.Equal(t, []float64{50000, 60000}, tbl.Floats)
	assert.Empty(t, res.Config.Warnings)
}

func TestResolveCommandFieldFallback(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemStore("waveform").
		AddInt64("shotnum", []int64{1}).
		AddInt64("command_index", []int64{0})

	def := DeviceDef{
		Name:  "Waveform",
		Kind:  "control",
		Table: "waveform",
		Configs: []ConfigDef{{
			Name:     "config01",
			Commands: []string{"VOLT 25.0"},
		}},
		Fields: []FieldDef{{
			Name:    "frequency",
			Type:    "float64",
			Sources: []string{"command_index"},
			Pattern: `(?P<frequency>FREQ\s+(?P<VAL>[0-9.]+))`,
		}},
	}
	r := New(nil)
	require.NoError(t, r.Add(def, ms))

	res, err := r.Resolve(ctx, "Waveform", "")
	require.NoError(t, err)
	require.Equal(t, StatusResolved, res.Status)

	// The field degrades to the opaque command index.
	assert.Nil(t, res.Config.Commands["frequency"])
	assert.Equal(t, table.KindInt64, res.Config.Fields[0].Kind)

	var found bool
	for _, w := range res.Config.Warnings {
		if w.Code == table.WarnDecodeFallback && w.Field == "frequency" {
			found = true
		}
	}
	assert.True(t, found, "expected a decode fallback warning")
}

func TestDeviceDefValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*DeviceDef)
	}{
		{"no name", func(d *DeviceDef) { d.Name = "" }},
		{"no table", func(d *DeviceDef) { d.Table = "" }},
		{"no fields", func(d *DeviceDef) { d.Fields = nil }},
		{"bad kind", func(d *DeviceDef) { d.Kind = "sensor" }},
		{"bad type", func(d *DeviceDef) { d.Fields[0].Type = "complex" }},
		{"duplicate field", func(d *DeviceDef) { d.Fields = append(d.Fields, d.Fields[0]) }},
		{"vector command field", func(d *DeviceDef) {
			d.Fields[0].Pattern = "x(?P<VAL>y)"
			d.Fields[0].Width = 2
			d.Fields[0].Sources = []string{"a", "b"}
		}},
		{"pattern without commands", func(d *DeviceDef) { d.Fields[0].Pattern = "x(?P<VAL>y)" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := waveformDef()
			def.Normalize()
			tt.mutate(&def)
			assert.Error(t, def.Validate())
		})
	}
}

func TestDeviceDefNormalizeDefaults(t *testing.T) {
	def := DeviceDef{
		Name: "D", Kind: "control", Table: "d",
		Fields: []FieldDef{{Name: "x", Type: "int64"}},
	}
	def.Normalize()
	assert.Equal(t, "shotnum", def.KeyField)
	require.Len(t, def.Configs, 1)
	assert.Equal(t, "config01", def.Configs[0].Name)
	assert.Equal(t, 1, def.Fields[0].Width)
	assert.Equal(t, []string{"x"}, def.Fields[0].Sources)
}
