// Package rewrite defines the contract shared by the build-file rewriters
// and the helpers they have in common.
//
// A rewriter streams a build file from in to out, locating list-valued
// variable definitions and synchronizing their members against an
// authoritative file list. Everything it does not recognize is passed
// through untouched, byte for byte.
package rewrite

import "io"

// Vars maps a logical variable name to its authoritative, ordered list of
// file names. It is built once per invocation and treated as read-only by
// the rewriters.
type Vars map[string][]string

// Sink receives non-fatal diagnostics from a rewriter: inconsistent
// indentation, mixed file extensions, duplicate entries, malformed block
// syntax. None of these abort processing; the rewriter falls back to its
// first-seen value and keeps going.
type Sink interface {
	Warnf(format string, args ...any)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(format string, args ...any)

// Warnf implements Sink.
func (f SinkFunc) Warnf(format string, args ...any) { f(format, args...) }

// Discard is a Sink that drops every diagnostic. Rewriters substitute it
// for a nil Sink.
var Discard Sink = SinkFunc(func(string, ...any) {})

// UpdateFunc is the contract every dialect rewriter implements. It reads a
// build file from in, writes the full, possibly rewritten text to out, and
// reports whether any recognized block changed (files added, removed or
// reordered). The error is reserved for I/O failures on the streams; the
// transformation itself never fails.
type UpdateFunc func(in io.Reader, out io.Writer, vars Vars, sink Sink) (bool, error)
