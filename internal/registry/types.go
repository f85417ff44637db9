package registry

import (
	"fmt"

	"github.com/plasmalab/shotread/internal/cmdlist"
	"github.com/plasmalab/shotread/internal/store"
	"github.com/plasmalab/shotread/internal/table"
)

// FieldDef describes one output field in a device definition.
type FieldDef struct {
	Name string `json:"name"`
	// Sources lists the store columns feeding the field, one per
	// component. An empty string marks a structurally absent component.
	// Defaults to [Name].
	Sources []string `json:"sources,omitempty"`
	// Width is the component count; defaults to 1.
	Width int `json:"width,omitempty"`
	// Type is a scalar kind name: int64, uint64, float64, string.
	Type string `json:"type"`
	// Pattern, when set, marks the field as command-coded: the store
	// column holds command indices and Pattern decodes the configuration's
	// command list into the field's values.
	Pattern string `json:"pattern,omitempty"`
}

// ConfigDef names one configuration of a device and carries its command
// list, if the device is command-programmed.
type ConfigDef struct {
	Name     string   `json:"name"`
	Commands []string `json:"commands,omitempty"`
}

// DeviceDef is one device entry of a run's mapping.
type DeviceDef struct {
	Name string `json:"name"`
	// Kind labels the device group: control, digitizer, or diagnostic.
	Kind string `json:"kind"`
	// Table names the dataset table in the acquisition database.
	Table string `json:"table"`
	// KeyField names the shot number column; defaults to "shotnum".
	KeyField string `json:"key_field,omitempty"`
	// Configs lists the configurations stored for this device, in the
	// fixed repeating row order they were written with. Devices with a
	// single implicit configuration may omit this.
	Configs []ConfigDef `json:"configs,omitempty"`
	Fields  []FieldDef  `json:"fields"`
}

// Normalize applies definition defaults in place.
func (d *DeviceDef) Normalize() {
	if d.KeyField == "" {
		d.KeyField = "shotnum"
	}
	if len(d.Configs) == 0 {
		d.Configs = []ConfigDef{{Name: "config01"}}
	}
	for i := range d.Fields {
		f := &d.Fields[i]
		if f.Width == 0 {
			f.Width = 1
		}
		if len(f.Sources) == 0 {
			f.Sources = []string{f.Name}
		}
	}
}

// Validate checks a normalized definition.
func (d *DeviceDef) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("device has no name")
	}
	if d.Table == "" {
		return fmt.Errorf("device %s: no dataset table", d.Name)
	}
	if len(d.Fields) == 0 {
		return fmt.Errorf("device %s: no fields", d.Name)
	}
	switch d.Kind {
	case "control", "digitizer", "diagnostic":
	default:
		return fmt.Errorf("device %s: unknown kind %q", d.Name, d.Kind)
	}

	seen := map[string]bool{}
	for _, c := range d.Configs {
		if c.Name == "" {
			return fmt.Errorf("device %s: configuration with no name", d.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("device %s: duplicate configuration %q", d.Name, c.Name)
		}
		seen[c.Name] = true
	}

	fields := map[string]bool{}
	for _, f := range d.Fields {
		if fields[f.Name] {
			return fmt.Errorf("device %s: duplicate field %q", d.Name, f.Name)
		}
		fields[f.Name] = true

		if _, err := table.ParseScalarKind(f.Type); err != nil {
			return fmt.Errorf("device %s: field %s: %w", d.Name, f.Name, err)
		}
		if f.Width < 1 {
			return fmt.Errorf("device %s: field %s: width %d < 1", d.Name, f.Name, f.Width)
		}
		if len(f.Sources) != f.Width {
			return fmt.Errorf("device %s: field %s: %d sources for width %d",
				d.Name, f.Name, len(f.Sources), f.Width)
		}
		if f.Pattern != "" {
			if f.Width != 1 {
				return fmt.Errorf("device %s: field %s: command-coded fields are scalar", d.Name, f.Name)
			}
			for _, c := range d.Configs {
				if len(c.Commands) == 0 {
					return fmt.Errorf("device %s: field %s: pattern set but configuration %s has no command list",
						d.Name, f.Name, c.Name)
				}
			}
		}
	}
	return nil
}

// DeviceConfiguration is a fully resolved selection on one device: the
// store handle, key field, ordered output fields, configuration stride and
// slot, and prebuilt command decode tables. It is immutable for the
// duration of a read.
type DeviceConfiguration struct {
	Device   string
	Config   string
	Store    store.RecordStore
	KeyField string
	// ConfigSlot and ConfigCount position this configuration inside the
	// store's repeating row groups. ConfigCount is 1 for single-
	// configuration stores.
	ConfigSlot  int64
	ConfigCount int64
	Fields      []table.Field
	// Commands maps field name to its decode table; fields absent from the
	// map copy their source columns directly.
	Commands map[string]*cmdlist.Table
	// Warnings carries non-fatal resolution conditions (decode fallbacks)
	// into the read result.
	Warnings []table.Warning
}
