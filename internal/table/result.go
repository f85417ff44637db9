package table

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DeviceInfo records where one device's slice of a result came from.
type DeviceInfo struct {
	Device   string `json:"device"`
	Config   string `json:"config"`
	Store    string `json:"store"`
	KeyField string `json:"key_field"`
}

// Metadata is the explicit provenance value carried by a ResultTable.
type Metadata struct {
	RequestID string       `json:"request_id"`
	Policy    string       `json:"policy"`
	KeyField  string       `json:"key_field"`
	Devices   []DeviceInfo `json:"devices"`
}

// ResultTable is the materialized output of a read: one row per acquisition
// key, one column per requested field. Keys are strictly ascending and
// unique; row i of every column belongs to Keys[i].
type ResultTable struct {
	Keys     []int64
	Columns  []*Column
	Meta     Metadata
	Warnings []Warning
}

// NumRows returns the number of key rows.
func (t *ResultTable) NumRows() int { return len(t.Keys) }

// Column returns the column with the given field name, or nil.
func (t *ResultTable) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Field().Name == name {
			return c
		}
	}
	return nil
}

// Render writes the table as tab-separated text: a header line with the key
// column first, one line per key row, and a trailing warnings block when any
// warnings were recovered. The output is deterministic and is what the CLI
// prints and the golden tests snapshot.
func (t *ResultTable) Render(w io.Writer, keyField string) error {
	header := make([]string, 0, len(t.Columns)+1)
	header = append(header, keyField)
	for _, c := range t.Columns {
		header = append(header, c.Field().Name)
	}
	if _, err := fmt.Fprintln(w, strings.Join(header, "\t")); err != nil {
		return err
	}

	for row := range t.Keys {
		cells := make([]string, 0, len(t.Columns)+1)
		cells = append(cells, strconv.FormatInt(t.Keys[row], 10))
		for _, c := range t.Columns {
			cells = append(cells, c.Cell(row))
		}
		if _, err := fmt.Fprintln(w, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}

	if len(t.Warnings) > 0 {
		if _, err := fmt.Fprintln(w, "# warnings"); err != nil {
			return err
		}
		for _, warn := range t.Warnings {
			if _, err := fmt.Fprintln(w, warn.String()); err != nil {
				return err
			}
		}
	}
	return nil
}
