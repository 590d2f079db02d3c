// Package preflight provides readiness checks for the filesystem paths and
// external programs timeliner depends on.
//
// The CLI runs them from "timeliner config validate". Project commands do
// not; they surface the same problems as ordinary errors when they occur.
package preflight
