// Package table defines the typed, column-oriented result model for
// shot-indexed reads.
//
// A ResultTable is row-aligned on acquisition keys: row i of every column
// belongs to Keys[i]. Columns are backed by flat slices, width-strided for
// vector fields, and carry their own fill semantics for union reads.
//
// The scalar kinds form a closed set (Int64, Uint64, Float64, String).
// Anything outside that set has no fill concept and surfaces as a warning
// instead of a guessed default.
//
// Metadata travels as an explicit value on the table. There is no implicit
// side-channel propagation: slicing or copying a table never smuggles
// provenance along for free, callers pass Meta around deliberately.
package table
