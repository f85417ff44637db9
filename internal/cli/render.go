package cli

import (
	"github.com/plasmalab/shotread/internal/table"
)

// columnJSON is one materialized column in the JSON response.
type columnJSON struct {
	Name   string   `json:"name"`
	Kind   string   `json:"kind"`
	Width  int      `json:"width"`
	Values []string `json:"values"`
}

// tableJSON is the JSON shape of a read result.
type tableJSON struct {
	Meta     table.Metadata `json:"meta"`
	Keys     []int64        `json:"keys"`
	Columns  []columnJSON   `json:"columns"`
	Warnings []string       `json:"warnings,omitempty"`
}

// resultJSON flattens a result table for JSON output. Cell values render
// with the same formatting as the text output, so the two formats always
// agree on what a value looks like.
func resultJSON(t *table.ResultTable) tableJSON {
	out := tableJSON{
		Meta: t.Meta,
		Keys: t.Keys,
	}
	for _, c := range t.Columns {
		cj := columnJSON{
			Name:   c.Field().Name,
			Kind:   c.Field().Kind.String(),
			Width:  c.Field().Width,
			Values: make([]string, t.NumRows()),
		}
		for row := range cj.Values {
			cj.Values[row] = c.Cell(row)
		}
		out.Columns = append(out.Columns, cj)
	}
	for _, w := range t.Warnings {
		out.Warnings = append(out.Warnings, w.String())
	}
	return out
}
