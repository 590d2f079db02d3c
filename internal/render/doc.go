// Package render is the boundary to the render engine that executes a
// committed timeline.
//
// The engine is modelled as an arena of nodes addressed by NodeID. Every
// node records its parent explicitly; moving a node between containers is
// always an explicit Remove followed by Add. Compositions batch structural
// changes until Commit, then report the update asynchronously on a
// per-composition channel as an UpdateStarted/UpdateDone pair tagged with a
// reason.
//
// Elements are created from an enum-keyed factory table rather than looked
// up by name at runtime; ParseDescription accepts a short textual pipeline
// ("audiotestsrc wave=silence ! audioconvert") for background generators.
//
// Engine is the in-process implementation used by the CLI and the tests.
// Consumers should depend on the Graph interface.
package render
