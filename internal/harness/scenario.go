// Package harness runs declarative read scenarios for tests. A scenario
// YAML file declares in-memory device datasets, device definitions, and one
// read request; the harness builds the stores, resolves the devices and
// executes the read. Golden files snapshot the rendered result table.
package harness

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/plasmalab/shotread/internal/read"
	"github.com/plasmalab/shotread/internal/registry"
	"github.com/plasmalab/shotread/internal/shot"
	"github.com/plasmalab/shotread/internal/store"
	"github.com/plasmalab/shotread/internal/table"
)

// Scenario is one declarative read test: datasets, devices, request.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Stores declares the in-memory datasets the devices read from.
	Stores []StoreDecl `yaml:"stores"`

	// Devices declares the device definitions, in request order.
	Devices []DeviceDecl `yaml:"devices"`

	// Request is the read to execute.
	Request RequestDecl `yaml:"request"`

	// ExpectError, when set, asserts that the read fails with this engine
	// error code instead of producing a table.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// StoreDecl declares one in-memory dataset.
type StoreDecl struct {
	Name    string       `yaml:"name"`
	Columns []ColumnDecl `yaml:"columns"`
	// Invalid lists rows to mark unreadable per column, keyed by column
	// name, to exercise partial-column degradation.
	Invalid map[string][]int64 `yaml:"invalid,omitempty"`
}

// ColumnDecl declares one dataset column. Exactly one of Values or Seq is
// set; Seq expands to the inclusive integer range [From, To] and only suits
// integer columns.
type ColumnDecl struct {
	Name   string        `yaml:"name"`
	Type   string        `yaml:"type"`
	Values []interface{} `yaml:"values,omitempty"`
	Seq    *SeqDecl      `yaml:"seq,omitempty"`
}

// SeqDecl is a compact inclusive integer range.
type SeqDecl struct {
	From int64 `yaml:"from"`
	To   int64 `yaml:"to"`
}

// DeviceDecl is the YAML form of a device definition.
type DeviceDecl struct {
	Name     string              `yaml:"name"`
	Kind     string              `yaml:"kind"`
	Table    string              `yaml:"table"`
	KeyField string              `yaml:"key_field,omitempty"`
	Configs  []ConfigDecl        `yaml:"configs,omitempty"`
	Fields   []registry.FieldDef `yaml:"fields"`
}

// ConfigDecl is the YAML form of one device configuration.
type ConfigDecl struct {
	Name     string   `yaml:"name"`
	Commands []string `yaml:"commands,omitempty"`
}

// RequestDecl is the read request of a scenario.
type RequestDecl struct {
	// Shots uses the CLI syntax: "all", "7", "10,20,30", "5:40".
	Shots string `yaml:"shots"`
	// Policy is "intersection" (default) or "union".
	Policy string `yaml:"policy,omitempty"`
	// Devices lists the devices to read, as name or name:config.
	Devices []string `yaml:"devices"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Stores) == 0 {
		return fmt.Errorf("stores list is required and must be non-empty")
	}
	if len(s.Devices) == 0 {
		return fmt.Errorf("devices list is required and must be non-empty")
	}
	if s.Request.Shots == "" {
		return fmt.Errorf("request.shots is required")
	}
	if len(s.Request.Devices) == 0 {
		return fmt.Errorf("request.devices is required and must be non-empty")
	}
	switch s.Request.Policy {
	case "", "intersection", "union":
	default:
		return fmt.Errorf("request.policy must be intersection or union, got %q", s.Request.Policy)
	}

	for i, sd := range s.Stores {
		if sd.Name == "" {
			return fmt.Errorf("stores[%d]: name is required", i)
		}
		if len(sd.Columns) == 0 {
			return fmt.Errorf("stores[%d]: columns list is required", i)
		}
		for j, cd := range sd.Columns {
			if cd.Name == "" {
				return fmt.Errorf("stores[%d].columns[%d]: name is required", i, j)
			}
			if (len(cd.Values) == 0) == (cd.Seq == nil) {
				return fmt.Errorf("stores[%d].columns[%d]: exactly one of values or seq is required", i, j)
			}
		}
	}
	return nil
}

// Result is one executed scenario: the materialized table, or the engine
// error when ExpectError scenarios fail as declared.
type Result struct {
	Table *table.ResultTable
	Err   error
}

// Run builds the scenario's stores and registry and executes the read.
// Returns an error only for harness faults; an expected engine failure
// lands in Result.Err.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	stores := map[string]*store.MemStore{}
	for _, sd := range scenario.Stores {
		ms, err := buildStore(sd)
		if err != nil {
			return nil, fmt.Errorf("store %s: %w", sd.Name, err)
		}
		stores[sd.Name] = ms
	}

	reg := registry.New(nil)
	for _, dd := range scenario.Devices {
		ms, ok := stores[dd.Table]
		if !ok {
			return nil, fmt.Errorf("device %s: no store %q declared", dd.Name, dd.Table)
		}
		def := registry.DeviceDef{
			Name:     dd.Name,
			Kind:     dd.Kind,
			Table:    dd.Table,
			KeyField: dd.KeyField,
			Fields:   dd.Fields,
		}
		for _, c := range dd.Configs {
			def.Configs = append(def.Configs, registry.ConfigDef{Name: c.Name, Commands: c.Commands})
		}
		if err := reg.Add(def, ms); err != nil {
			return nil, err
		}
	}

	spec, err := parseShots(scenario.Request.Shots)
	if err != nil {
		return nil, err
	}
	policy := shot.Intersection
	if scenario.Request.Policy == "union" {
		policy = shot.Union
	}

	var configs []*registry.DeviceConfiguration
	for _, arg := range scenario.Request.Devices {
		device, config := arg, ""
		if i := strings.LastIndex(arg, ":"); i >= 0 {
			device, config = arg[:i], arg[i+1:]
		}
		res, err := reg.Resolve(ctx, device, config)
		if err != nil {
			return nil, err
		}
		if res.Status != registry.StatusResolved {
			return nil, fmt.Errorf("device %q did not resolve (status %d, choices %v)",
				device, res.Status, res.Choices)
		}
		configs = append(configs, res.Config)
	}

	result, err := read.Read(ctx, read.Request{Spec: spec, Policy: policy, Configs: configs})
	if err != nil {
		if scenario.ExpectError != "" && string(read.CodeOf(err)) == scenario.ExpectError {
			return &Result{Err: err}, nil
		}
		return nil, err
	}
	if scenario.ExpectError != "" {
		return nil, fmt.Errorf("expected error %s, read succeeded", scenario.ExpectError)
	}
	return &Result{Table: result}, nil
}

// buildStore materializes one declared dataset as a MemStore.
func buildStore(sd StoreDecl) (*store.MemStore, error) {
	ms := store.NewMemStore(sd.Name)
	for _, cd := range sd.Columns {
		kind, err := table.ParseScalarKind(cd.Type)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", cd.Name, err)
		}
		if err := addColumn(ms, cd, kind); err != nil {
			return nil, fmt.Errorf("column %s: %w", cd.Name, err)
		}
	}
	for col, rows := range sd.Invalid {
		ms.Invalidate(col, rows...)
	}
	return ms, nil
}

func addColumn(ms *store.MemStore, cd ColumnDecl, kind table.ScalarKind) error {
	if cd.Seq != nil {
		if kind != table.KindInt64 && kind != table.KindUint64 {
			return fmt.Errorf("seq requires an integer column type, got %s", kind)
		}
		n := cd.Seq.To - cd.Seq.From + 1
		if n < 0 {
			n = 0
		}
		if kind == table.KindUint64 {
			vals := make([]uint64, 0, n)
			for v := cd.Seq.From; v <= cd.Seq.To; v++ {
				vals = append(vals, uint64(v))
			}
			ms.AddUint64(cd.Name, vals)
			return nil
		}
		vals := make([]int64, 0, n)
		for v := cd.Seq.From; v <= cd.Seq.To; v++ {
			vals = append(vals, v)
		}
		ms.AddInt64(cd.Name, vals)
		return nil
	}

	switch kind {
	case table.KindInt64:
		vals := make([]int64, len(cd.Values))
		for i, v := range cd.Values {
			n, err := asInt64(v)
			if err != nil {
				return err
			}
			vals[i] = n
		}
		ms.AddInt64(cd.Name, vals)
	case table.KindUint64:
		vals := make([]uint64, len(cd.Values))
		for i, v := range cd.Values {
			n, err := asInt64(v)
			if err != nil {
				return err
			}
			if n < 0 {
				return fmt.Errorf("value %d for unsigned column", n)
			}
			vals[i] = uint64(n)
		}
		ms.AddUint64(cd.Name, vals)
	case table.KindFloat64:
		vals := make([]float64, len(cd.Values))
		for i, v := range cd.Values {
			switch n := v.(type) {
			case float64:
				vals[i] = n
			case int:
				vals[i] = float64(n)
			case int64:
				vals[i] = float64(n)
			default:
				return fmt.Errorf("value %v (%T) is not a float", v, v)
			}
		}
		ms.AddFloat64(cd.Name, vals)
	case table.KindString:
		vals := make([]string, len(cd.Values))
		for i, v := range cd.Values {
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("value %v (%T) is not a string", v, v)
			}
			vals[i] = s
		}
		ms.AddString(cd.Name, vals)
	}
	return nil
}

func asInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not an integer", v, v)
	}
}

// parseShots mirrors the CLI shot request syntax.
func parseShots(s string) (shot.Spec, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.EqualFold(s, "all"):
		return shot.All(), nil
	case strings.Contains(s, ":"):
		parts := strings.SplitN(s, ":", 2)
		var start, stop int64
		if parts[0] != "" {
			if _, err := fmt.Sscanf(parts[0], "%d", &start); err != nil {
				return shot.Spec{}, fmt.Errorf("range start %q", parts[0])
			}
		}
		if parts[1] != "" {
			if _, err := fmt.Sscanf(parts[1], "%d", &stop); err != nil {
				return shot.Spec{}, fmt.Errorf("range stop %q", parts[1])
			}
		}
		return shot.Range(start, stop), nil
	case strings.Contains(s, ","):
		var ns []int64
		for _, f := range strings.Split(s, ",") {
			f = strings.TrimSpace(f)
			if f == "" {
				continue
			}
			var n int64
			if _, err := fmt.Sscanf(f, "%d", &n); err != nil {
				return shot.Spec{}, fmt.Errorf("shot number %q", f)
			}
			ns = append(ns, n)
		}
		return shot.List(ns...), nil
	default:
		var n int64
		if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
			return shot.Spec{}, fmt.Errorf("shot number %q", s)
		}
		return shot.Single(n), nil
	}
}
