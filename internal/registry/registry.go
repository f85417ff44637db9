package registry

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/plasmalab/shotread/internal/cmdlist"
	"github.com/plasmalab/shotread/internal/store"
	"github.com/plasmalab/shotread/internal/table"
)

// configColumn is the dataset column that names which configuration a row
// belongs to, for stores that interleave several.
const configColumn = "configuration"

type entry struct {
	def DeviceDef
	rs  store.RecordStore
}

// Registry maps device names to their definitions and store handles.
type Registry struct {
	sugar   *zap.SugaredLogger
	devices map[string]*entry
	order   []string
}

// New creates an empty registry.
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		sugar:   logger.Sugar(),
		devices: make(map[string]*entry),
	}
}

// Add registers a device definition bound to its record store. The
// definition is normalized and validated.
func (r *Registry) Add(def DeviceDef, rs store.RecordStore) error {
	def.Normalize()
	if err := def.Validate(); err != nil {
		return err
	}
	if _, ok := r.devices[def.Name]; ok {
		return fmt.Errorf("device %s already registered", def.Name)
	}
	if !rs.HasColumn(def.KeyField) {
		return fmt.Errorf("device %s: store %s has no key column %q",
			def.Name, rs.Name(), def.KeyField)
	}
	r.devices[def.Name] = &entry{def: def, rs: rs}
	r.order = append(r.order, def.Name)
	r.sugar.Debugw("registered device", "device", def.Name, "kind", def.Kind, "store", rs.Name())
	return nil
}

// Devices returns the registered definitions in registration order.
func (r *Registry) Devices() []DeviceDef {
	out := make([]DeviceDef, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.devices[name].def)
	}
	return out
}

// Status tags the outcome of a resolution.
type Status int

const (
	// StatusResolved means a single unambiguous configuration was found.
	StatusResolved Status = iota
	// StatusAmbiguous means the device has several configurations and the
	// request named none; Choices lists them.
	StatusAmbiguous
	// StatusNotFound means the device, or the named configuration, does
	// not exist.
	StatusNotFound
)

// Resolution is the tagged result of Resolve. Config is non-nil only for
// StatusResolved.
type Resolution struct {
	Status  Status
	Config  *DeviceConfiguration
	Choices []string
}

// Resolve looks up a device and configuration name. An empty config name
// resolves to the device's only configuration when exactly one exists, and
// to StatusAmbiguous otherwise. Errors are reserved for store access and
// definition faults, never for lookup misses.
func (r *Registry) Resolve(ctx context.Context, device, config string) (Resolution, error) {
	e, ok := r.devices[device]
	if !ok {
		return Resolution{Status: StatusNotFound}, nil
	}
	def := e.def

	choices := make([]string, len(def.Configs))
	for i, c := range def.Configs {
		choices[i] = c.Name
	}

	slot := -1
	switch {
	case config == "" && len(def.Configs) == 1:
		slot = 0
	case config == "":
		return Resolution{Status: StatusAmbiguous, Choices: choices}, nil
	default:
		for i, c := range def.Configs {
			if c.Name == config {
				slot = i
				break
			}
		}
		if slot < 0 {
			return Resolution{Status: StatusNotFound, Choices: choices}, nil
		}
	}

	dc, err := r.build(ctx, e, slot)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Status: StatusResolved, Config: dc}, nil
}

// build assembles the resolved configuration: verifies the configuration
// slot against the store's configuration column when present, and compiles
// the command decode tables.
func (r *Registry) build(ctx context.Context, e *entry, slot int) (*DeviceConfiguration, error) {
	def := e.def
	cfg := def.Configs[slot]

	configSlot := int64(slot)
	configCount := int64(len(def.Configs))

	if configCount > 1 {
		// The declared order is authoritative only if the store lacks a
		// configuration column; otherwise the first row group decides.
		if e.rs.HasColumn(configColumn) {
			found, err := r.slotFromStore(ctx, e, cfg.Name, configCount)
			if err != nil {
				return nil, err
			}
			configSlot = found
		}
	}

	dc := &DeviceConfiguration{
		Device:      def.Name,
		Config:      cfg.Name,
		Store:       e.rs,
		KeyField:    def.KeyField,
		ConfigSlot:  configSlot,
		ConfigCount: configCount,
		Commands:    make(map[string]*cmdlist.Table),
	}

	for _, fd := range def.Fields {
		kind, err := table.ParseScalarKind(fd.Type)
		if err != nil {
			return nil, fmt.Errorf("device %s: field %s: %w", def.Name, fd.Name, err)
		}
		field := table.Field{
			Name:    fd.Name,
			Sources: fd.Sources,
			Width:   fd.Width,
			Kind:    kind,
		}

		if fd.Pattern != "" {
			field, err = r.bindCommandField(dc, field, fd.Pattern, cfg)
			if err != nil {
				return nil, err
			}
		}

		if err := field.Validate(); err != nil {
			return nil, fmt.Errorf("device %s: %w", def.Name, err)
		}
		dc.Fields = append(dc.Fields, field)
	}
	return dc, nil
}

// bindCommandField compiles the decode table for a command-coded field.
// When no pattern decodes the whole command list the field degrades to the
// opaque command index, reported as a DecodeFallback warning.
func (r *Registry) bindCommandField(dc *DeviceConfiguration, field table.Field, pattern string, cfg ConfigDef) (table.Field, error) {
	set, warns, err := cmdlist.Parse(cfg.Commands, []string{pattern})
	if err != nil {
		return table.Field{}, fmt.Errorf("device %s: field %s: %w", dc.Device, field.Name, err)
	}
	for _, w := range warns {
		w.Device = dc.Device
		w.Field = field.Name
		dc.Warnings = append(dc.Warnings, w)
	}

	if set.Empty() {
		// Opaque fallback: keep the raw command index.
		r.sugar.Warnw("command decode fallback",
			"device", dc.Device, "config", cfg.Name, "field", field.Name)
		dc.Warnings = append(dc.Warnings, table.Warning{
			Code:    table.WarnDecodeFallback,
			Device:  dc.Device,
			Field:   field.Name,
			Message: "no pattern matched every command; storing raw command index",
		})
		field.Kind = table.KindInt64
		return field, nil
	}

	tbl := set.Tables[0]
	field.Kind = tbl.Kind
	dc.Commands[field.Name] = tbl
	return field, nil
}

// slotFromStore reads the first row group's configuration names and returns
// the row offset of the named configuration.
func (r *Registry) slotFromStore(ctx context.Context, e *entry, config string, count int64) (int64, error) {
	idx := make([]int64, count)
	for i := range idx {
		idx[i] = int64(i)
	}
	names, err := e.rs.ReadString(ctx, configColumn, idx)
	if err != nil {
		return 0, fmt.Errorf("device %s: read configuration column: %w", e.def.Name, err)
	}
	for i, n := range names {
		if n == config {
			return int64(i), nil
		}
	}
	return 0, fmt.Errorf("device %s: configuration %q not found in the first %d rows of %s",
		e.def.Name, config, count, e.rs.Name())
}
