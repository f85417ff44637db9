package table

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scalarField(name string, kind ScalarKind) Field {
	return Field{Name: name, Sources: []string{name}, Width: 1, Kind: kind}
}

func TestColumnFillValues(t *testing.T) {
	tests := []struct {
		kind ScalarKind
		want string
	}{
		{KindInt64, "-99999"},
		{KindUint64, "0"},
		{KindFloat64, "NaN"},
		{KindString, ""},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			col := NewColumn(scalarField("f", tt.kind), 1)
			require.True(t, col.Fill(0))
			assert.True(t, col.IsFill(0))
			assert.Equal(t, tt.want, col.Cell(0))
		})
	}
}

func TestColumnNoFillConcept(t *testing.T) {
	col := NewColumn(Field{Name: "f", Sources: []string{"f"}, Width: 1, Kind: ScalarKind(99)}, 2)
	assert.False(t, col.Fill(0))
	assert.False(t, col.IsFill(0))
	assert.Equal(t, "?", col.Cell(0))
}

func TestColumnFloatFillIsNaN(t *testing.T) {
	col := NewColumn(scalarField("f", KindFloat64), 1)
	col.Fill(0)
	assert.True(t, math.IsNaN(col.Float64s()[0]))
}

func TestColumnVectorCell(t *testing.T) {
	f := Field{Name: "pos", Sources: []string{"x", "", "z"}, Width: 3, Kind: KindFloat64}
	col := NewColumn(f, 2)
	col.SetFloat64(1, 0, 2.5)
	col.SetFloat64(1, 2, 11.5)
	assert.Equal(t, "[2.5 0 11.5]", col.Cell(1))
}

func TestColumnRowMajorLayout(t *testing.T) {
	f := Field{Name: "v", Sources: []string{"a", "b"}, Width: 2, Kind: KindInt64}
	col := NewColumn(f, 3)
	col.SetInt64(2, 1, 7)
	assert.Equal(t, int64(7), col.Int64s()[2*2+1])
}

func TestFieldValidate(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		ok    bool
	}{
		{"scalar", scalarField("x", KindInt64), true},
		{"vector with gap", Field{Name: "p", Sources: []string{"x", ""}, Width: 2}, true},
		{"no name", Field{Sources: []string{"x"}, Width: 1}, false},
		{"width mismatch", Field{Name: "p", Sources: []string{"x"}, Width: 2}, false},
		{"all sources empty", Field{Name: "p", Sources: []string{"", ""}, Width: 2}, false},
		{"zero width", Field{Name: "p", Width: 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.field.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestParseScalarKind(t *testing.T) {
	for name, want := range map[string]ScalarKind{
		"int64": KindInt64, "int": KindInt64,
		"uint64": KindUint64, "uint": KindUint64,
		"float64": KindFloat64, "float": KindFloat64,
		"string": KindString, "str": KindString,
	} {
		got, err := ParseScalarKind(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := ParseScalarKind("complex128")
	assert.Error(t, err)
}

func TestResultTableRender(t *testing.T) {
	col := NewColumn(scalarField("gain", KindInt64), 2)
	col.SetInt64(0, 0, 110)
	col.SetInt64(1, 0, 120)

	rt := &ResultTable{
		Keys:    []int64{10, 20},
		Columns: []*Column{col},
		Warnings: []Warning{{
			Code: WarnPartialColumn, Device: "Waveform", Field: "gain", Message: "degraded",
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, rt.Render(&buf, "shotnum"))
	assert.Equal(t,
		"shotnum\tgain\n10\t110\n20\t120\n# warnings\nPARTIAL_COLUMN device=Waveform field=gain: degraded\n",
		buf.String())
}

func TestResultTableColumnLookup(t *testing.T) {
	col := NewColumn(scalarField("gain", KindInt64), 0)
	rt := &ResultTable{Columns: []*Column{col}}
	assert.Same(t, col, rt.Column("gain"))
	assert.Nil(t, rt.Column("missing"))
}

func TestWarningString(t *testing.T) {
	w := Warning{Code: WarnDecodeFallback, Device: "Waveform", Field: "frequency", Message: "m"}
	assert.Equal(t, "DECODE_FALLBACK device=Waveform field=frequency: m", w.String())
	assert.Equal(t, "NO_FILL_CONCEPT", Warning{Code: WarnNoFillConcept}.String())
}
