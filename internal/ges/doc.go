// Package ges is the editing model: media objects placed on a timeline,
// per-media-type tracks ordered by start time, crossfade transitions
// synthesized between overlapping neighbours, and the commit protocol that
// pushes the arrangement into a render graph.
//
// Mutations between commits only change the data model. Timeline.Commit
// recomputes every track's transitions first and then commits every
// composition; completion is reported asynchronously and aggregated into a
// single start/done pair per commit.
//
// A Timeline is driven from one goroutine. Only the completion aggregation
// runs on goroutines of its own.
package ges
