// Package read is the alignment and materialization engine: it turns a shot
// number request plus a set of resolved device configurations into one
// row-aligned result table.
//
// Control flow for one call:
//
//	condition shot numbers (shot)
//	  -> build per-store relations (locate)
//	  -> combine under the request policy (combine)
//	  -> materialize columns, decode coded fields, apply fills
//
// A call is synchronous and self-contained: every intermediate array is
// owned by the call, nothing persists between calls, and stores are only
// read. Concurrent independent calls are safe as long as the underlying
// stores support concurrent reads.
package read

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/plasmalab/shotread/internal/combine"
	"github.com/plasmalab/shotread/internal/locate"
	"github.com/plasmalab/shotread/internal/registry"
	"github.com/plasmalab/shotread/internal/shot"
	"github.com/plasmalab/shotread/internal/table"
)

// Request is one read call: which shots, how to combine stores that
// disagree on coverage, and which resolved device configurations to
// include.
type Request struct {
	Spec    shot.Spec
	Policy  shot.Policy
	Configs []*registry.DeviceConfiguration
}

// Read materializes the request into a result table. Structural failures
// (empty key set, empty intersection, missing required column) abort the
// call; recoverable conditions are reported as warnings on the result.
func Read(ctx context.Context, req Request) (*table.ResultTable, error) {
	if len(req.Configs) == 0 {
		return nil, &EngineError{
			Code:    ErrCodeNoDevices,
			Message: "request names no device configurations",
		}
	}

	datasets := make([]locate.Dataset, len(req.Configs))
	for i, dc := range req.Configs {
		datasets[i] = locate.Dataset{
			Store:       dc.Store,
			KeyField:    dc.KeyField,
			ConfigSlot:  dc.ConfigSlot,
			ConfigCount: dc.ConfigCount,
		}
	}

	keys, err := conditionKeys(ctx, req, datasets)
	if err != nil {
		return nil, err
	}

	rels := make([]locate.Relation, len(datasets))
	for i, ds := range datasets {
		rel, err := locate.Build(ctx, keys, ds)
		if err != nil {
			return nil, &EngineError{
				Code:    ErrCodeStoreRead,
				Message: "building shot number relation",
				Device:  req.Configs[i].Device,
				Store:   ds.Store.Name(),
				Request: req.Spec.String(),
				Err:     err,
			}
		}
		rels[i] = rel
	}

	var final []int64
	if req.Policy == shot.Intersection {
		final, rels, err = combine.Intersect(keys, rels)
		if err != nil {
			return nil, &EngineError{
				Code:    ErrCodeEmptyResult,
				Message: "intersection of requested stores is empty",
				Request: req.Spec.String(),
				Err:     err,
			}
		}
	} else {
		final, rels = combine.Unite(keys, rels)
	}

	t := &table.ResultTable{
		Keys: final,
		Meta: table.Metadata{
			RequestID: uuid.Must(uuid.NewV7()).String(),
			Policy:    req.Policy.String(),
			KeyField:  req.Configs[0].KeyField,
		},
	}

	if err := checkFieldNames(req.Configs); err != nil {
		return nil, err
	}

	for i, dc := range req.Configs {
		t.Meta.Devices = append(t.Meta.Devices, table.DeviceInfo{
			Device:   dc.Device,
			Config:   dc.Config,
			Store:    dc.Store.Name(),
			KeyField: dc.KeyField,
		})
		t.Warnings = append(t.Warnings, dc.Warnings...)

		for _, field := range dc.Fields {
			col := table.NewColumn(field, len(final))
			warns, err := materializeField(ctx, col, dc, rels[i], req.Policy)
			if err != nil {
				return nil, err
			}
			t.Warnings = append(t.Warnings, warns...)
			t.Columns = append(t.Columns, col)
		}
	}
	return t, nil
}

// conditionKeys gathers the participating stores' key extents and runs the
// key conditioner.
func conditionKeys(ctx context.Context, req Request, datasets []locate.Dataset) ([]int64, error) {
	var ext shot.Extents
	for i, ds := range datasets {
		if ds.Store.NumRows() < ds.ConfigCount || ds.Store.NumRows() == 0 {
			continue
		}
		first, last, err := locate.Extent(ctx, ds)
		if err != nil {
			return nil, &EngineError{
				Code:    ErrCodeStoreRead,
				Message: "reading key extent",
				Device:  req.Configs[i].Device,
				Store:   ds.Store.Name(),
				Err:     err,
			}
		}
		ext.First = append(ext.First, first)
		ext.Last = append(ext.Last, last)
	}

	keys, err := shot.Condition(req.Spec, ext, req.Policy)
	if err != nil {
		return nil, &EngineError{
			Code:    ErrCodeEmptyRequest,
			Message: "no usable shot numbers in request",
			Request: req.Spec.String(),
			Err:     err,
		}
	}
	return keys, nil
}

// checkFieldNames rejects output name collisions across devices.
func checkFieldNames(configs []*registry.DeviceConfiguration) error {
	seen := map[string]string{}
	for _, dc := range configs {
		for _, f := range dc.Fields {
			if other, ok := seen[f.Name]; ok {
				return &EngineError{
					Code:    ErrCodeDuplicateField,
					Message: fmt.Sprintf("field %q requested by both %s and %s", f.Name, other, dc.Device),
					Device:  dc.Device,
					Field:   f.Name,
				}
			}
			seen[f.Name] = dc.Device
		}
	}
	return nil
}
