// Package cmdlist parses command lists into categorical decode tables.
//
// A command list is the ordered list of raw strings a control device was
// programmed with during a run ("FREQ 50000.000000", "VOLT 25.0", ...).
// Stores do not repeat the string per row; they store a small integer code,
// the command index, per row. A decode table turns that indirection back
// into typed values: one decoded value per command-list position, looked up
// by code, never scanned per row.
//
// Patterns are regular expressions with two symbolic groups: VAL capturing
// the value substring, and one more group naming the decoded field. A
// pattern produces a table only if it matches every command string; decoded
// values must parse to one consistent type (float64 when the VAL text
// parses as a number, trimmed text otherwise).
package cmdlist

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/plasmalab/shotread/internal/table"
)

// Table is one decoded command table: value = table[commandIndex].
type Table struct {
	// Name is the symbolic group name the pattern declared.
	Name string
	// Kind is KindFloat64 or KindString.
	Kind table.ScalarKind
	// Floats holds the decoded values for a float table.
	Floats []float64
	// Strings holds the decoded values for a text table.
	Strings []string
	// Raw holds the matched command substring per position.
	Raw []string
	// Pattern is the source expression, kept for provenance.
	Pattern string
}

// Len returns the number of command-list positions.
func (t *Table) Len() int {
	if t.Kind == table.KindFloat64 {
		return len(t.Floats)
	}
	return len(t.Strings)
}

// TableSet is the ordered set of tables one command list decoded into.
type TableSet struct {
	Tables []*Table
}

// Empty reports whether no pattern produced a table; the caller falls back
// to storing the opaque command index.
func (s *TableSet) Empty() bool { return s == nil || len(s.Tables) == 0 }

// ByName returns the table for a symbolic group name, or nil.
func (s *TableSet) ByName(name string) *Table {
	if s == nil {
		return nil
	}
	for _, t := range s.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Parse applies patterns to a command list. Malformed patterns are an
// error: they come from device definitions, not from data. Patterns that
// are well-formed but fail to decode every command are dropped with a
// warning, and an empty set with no error means every pattern fell through.
func Parse(commands []string, patterns []string) (*TableSet, []table.Warning, error) {
	if len(commands) == 0 {
		return &TableSet{}, nil, fmt.Errorf("empty command list")
	}

	// Command strings come from instrument firmware; normalize before
	// matching so composed and decomposed forms compare equal.
	normed := make([]string, len(commands))
	for i, c := range commands {
		normed[i] = norm.NFC.String(c)
	}

	set := &TableSet{}
	var warnings []table.Warning
	seen := map[string]bool{}

	for _, pattern := range patterns {
		re, name, err := compilePattern(pattern)
		if err != nil {
			return nil, nil, err
		}
		if seen[name] {
			return nil, nil, fmt.Errorf("symbolic group %q defined in multiple patterns", name)
		}
		seen[name] = true

		tbl, reason := buildTable(re, name, pattern, normed)
		if tbl == nil {
			warnings = append(warnings, table.Warning{
				Code:    table.WarnDecodeFallback,
				Message: fmt.Sprintf("pattern %q dropped: %s", pattern, reason),
			})
			continue
		}
		set.Tables = append(set.Tables, tbl)
	}
	return set, warnings, nil
}

// compilePattern validates the two-symbolic-group shape: VAL plus exactly
// one named value group.
func compilePattern(pattern string) (*regexp.Regexp, string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, "", fmt.Errorf("compile pattern %q: %w", pattern, err)
	}

	var names []string
	for _, n := range re.SubexpNames() {
		if n != "" {
			names = append(names, n)
		}
	}
	if len(names) != 2 {
		return nil, "", fmt.Errorf(
			"pattern %q must define two symbolic groups, VAL and the field name", pattern)
	}

	var name string
	hasVal := false
	for _, n := range names {
		if n == "VAL" {
			hasVal = true
		} else {
			name = n
		}
	}
	if !hasVal {
		return nil, "", fmt.Errorf("pattern %q must define symbolic group VAL", pattern)
	}
	if strings.EqualFold(name, "remainder") {
		return nil, "", fmt.Errorf("pattern %q: %q is a reserved group name", pattern, name)
	}
	return re, name, nil
}

// buildTable decodes every command with re. Returns nil and a reason when
// the pattern cannot serve as a decode table.
func buildTable(re *regexp.Regexp, name, pattern string, commands []string) (*Table, string) {
	groups := re.SubexpNames()
	valIdx, nameIdx := 0, 0
	for i, n := range groups {
		switch n {
		case "VAL":
			valIdx = i
		case name:
			nameIdx = i
		}
	}

	floats := make([]float64, 0, len(commands))
	strs := make([]string, 0, len(commands))
	raw := make([]string, 0, len(commands))
	sawFloat, sawString := false, false

	for ci, cmd := range commands {
		m := re.FindStringSubmatch(cmd)
		if m == nil {
			return nil, fmt.Sprintf("command %d (%q) did not match", ci, cmd)
		}
		val := m[valIdx]
		raw = append(raw, m[nameIdx])

		if f, err := strconv.ParseFloat(val, 64); err == nil {
			sawFloat = true
			floats = append(floats, f)
			continue
		}
		val = strings.TrimSpace(val)
		if val == "" {
			return nil, fmt.Sprintf("command %d (%q) decoded to an empty value", ci, cmd)
		}
		sawString = true
		strs = append(strs, val)
	}

	if sawFloat && sawString {
		return nil, "decoded values do not share one type"
	}

	tbl := &Table{Name: name, Raw: raw, Pattern: pattern}
	if sawFloat {
		tbl.Kind = table.KindFloat64
		tbl.Floats = floats
	} else {
		tbl.Kind = table.KindString
		tbl.Strings = strs
	}
	return tbl, ""
}
