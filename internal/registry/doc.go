// Package registry is the mapping/resolution collaborator of the read
// engine: it knows which devices exist in a run, which store table and key
// field each one uses, how its output fields map onto store columns, and
// which command lists decode its coded fields.
//
// The registry is an explicit value built from device definitions; there is
// no ambient device table. Definitions are written as CUE files and loaded
// with Load, or constructed directly for tests.
//
// Resolution never signals "no such device" or "name the configuration" by
// error: Resolve returns a tagged Resolution whose Status is Resolved,
// Ambiguous, or NotFound, and the caller handles each case before invoking
// the engine.
package registry
