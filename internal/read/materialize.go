package read

import (
	"context"
	"errors"
	"fmt"

	"github.com/plasmalab/shotread/internal/cmdlist"
	"github.com/plasmalab/shotread/internal/locate"
	"github.com/plasmalab/shotread/internal/registry"
	"github.com/plasmalab/shotread/internal/shot"
	"github.com/plasmalab/shotread/internal/store"
	"github.com/plasmalab/shotread/internal/table"
)

// materializeField fills col from the device configuration's store through
// the relation rel. Rows the store does not cover (union policy) get the
// kind's fill value; a partially readable source column degrades the whole
// column to fills with a warning instead of failing the read.
func materializeField(ctx context.Context, col *table.Column, dc *registry.DeviceConfiguration, rel locate.Relation, pol shot.Policy) ([]table.Warning, error) {
	field := col.Field()

	// Result rows this store covers, parallel to rel.Index.
	maskedRows := make([]int, 0, len(rel.Index))
	for i, ok := range rel.Mask {
		if ok {
			maskedRows = append(maskedRows, i)
		}
	}

	var warns []table.Warning
	if tbl := dc.Commands[field.Name]; tbl != nil {
		w, err := decodeCommandColumn(ctx, col, dc, rel, maskedRows, tbl)
		if err != nil {
			return nil, err
		}
		warns = append(warns, w...)
	} else {
		w, err := copyColumn(ctx, col, dc, rel, maskedRows)
		if err != nil {
			return nil, err
		}
		warns = append(warns, w...)
	}

	if pol == shot.Union {
		w := fillAbsentRows(col, dc, rel)
		warns = append(warns, w...)
	}
	return warns, nil
}

// decodeCommandColumn reads the command index column and maps each code
// through the decode table.
func decodeCommandColumn(ctx context.Context, col *table.Column, dc *registry.DeviceConfiguration, rel locate.Relation, maskedRows []int, tbl *cmdlist.Table) ([]table.Warning, error) {
	field := col.Field()
	src := field.Sources[0]

	codes, err := dc.Store.ReadInt64(ctx, src, rel.Index)
	if err != nil {
		if errors.Is(err, store.ErrPartialColumn) {
			return degradeColumn(col, dc, src, err), nil
		}
		return nil, readError(dc, field.Name, src, err)
	}

	n := int64(tbl.Len())
	for i, code := range codes {
		if code < 0 || code >= n {
			return degradeColumn(col, dc, src,
				fmt.Errorf("command index %d outside decode table of %d entries", code, n)), nil
		}
		row := maskedRows[i]
		switch tbl.Kind {
		case table.KindFloat64:
			col.SetFloat64(row, 0, tbl.Floats[code])
		case table.KindString:
			col.SetString(row, 0, tbl.Strings[code])
		}
	}
	return nil, nil
}

// copyColumn reads each component's source column directly into col.
func copyColumn(ctx context.Context, col *table.Column, dc *registry.DeviceConfiguration, rel locate.Relation, maskedRows []int) ([]table.Warning, error) {
	field := col.Field()

	for comp, src := range field.Sources {
		if src == "" {
			// Structurally absent component; the zero value stands in.
			continue
		}
		if !dc.Store.HasColumn(src) {
			if field.NonEmptySources() == 1 {
				return nil, &EngineError{
					Code:    ErrCodeMissingField,
					Message: fmt.Sprintf("store has no column %q", src),
					Device:  dc.Device,
					Store:   dc.Store.Name(),
					Field:   field.Name,
				}
			}
			// A vector with other live components tolerates the gap.
			continue
		}

		err := readComponent(ctx, col, dc, rel, maskedRows, comp, src)
		if err != nil {
			if errors.Is(err, store.ErrPartialColumn) {
				return degradeColumn(col, dc, src, err), nil
			}
			return nil, readError(dc, field.Name, src, err)
		}
	}
	return nil, nil
}

// readComponent performs one typed bulk read and scatters it into the
// column's component lane.
func readComponent(ctx context.Context, col *table.Column, dc *registry.DeviceConfiguration, rel locate.Relation, maskedRows []int, comp int, src string) error {
	switch col.Field().Kind {
	case table.KindInt64:
		vals, err := dc.Store.ReadInt64(ctx, src, rel.Index)
		if err != nil {
			return err
		}
		for i, v := range vals {
			col.SetInt64(maskedRows[i], comp, v)
		}
	case table.KindUint64:
		vals, err := dc.Store.ReadUint64(ctx, src, rel.Index)
		if err != nil {
			return err
		}
		for i, v := range vals {
			col.SetUint64(maskedRows[i], comp, v)
		}
	case table.KindFloat64:
		vals, err := dc.Store.ReadFloat64(ctx, src, rel.Index)
		if err != nil {
			return err
		}
		for i, v := range vals {
			col.SetFloat64(maskedRows[i], comp, v)
		}
	case table.KindString:
		vals, err := dc.Store.ReadString(ctx, src, rel.Index)
		if err != nil {
			return err
		}
		for i, v := range vals {
			col.SetString(maskedRows[i], comp, v)
		}
	default:
		// A kind outside the closed scalar set has no backing storage to
		// read into; its cells render as unknown.
	}
	return nil
}

// degradeColumn fills every row of col and reports the column as partial.
func degradeColumn(col *table.Column, dc *registry.DeviceConfiguration, src string, cause error) []table.Warning {
	for row := 0; row < col.Rows(); row++ {
		col.Fill(row)
	}
	return []table.Warning{{
		Code:    table.WarnPartialColumn,
		Device:  dc.Device,
		Field:   col.Field().Name,
		Message: fmt.Sprintf("column %q degraded to fill values: %v", src, cause),
	}}
}

// fillAbsentRows writes fill values into the rows this store does not
// cover. A kind with no fill concept is reported once per field and the
// rows are left as allocated.
func fillAbsentRows(col *table.Column, dc *registry.DeviceConfiguration, rel locate.Relation) []table.Warning {
	for i, ok := range rel.Mask {
		if ok {
			continue
		}
		if !col.Fill(i) {
			return []table.Warning{{
				Code:    table.WarnNoFillConcept,
				Device:  dc.Device,
				Field:   col.Field().Name,
				Message: "no fill value defined for this field's kind; absent rows left unset",
			}}
		}
	}
	return nil
}

func readError(dc *registry.DeviceConfiguration, field, src string, err error) error {
	return &EngineError{
		Code:    ErrCodeStoreRead,
		Message: fmt.Sprintf("reading column %q", src),
		Device:  dc.Device,
		Store:   dc.Store.Name(),
		Field:   field,
		Err:     err,
	}
}
