// Package ffprobe wraps ffprobe's JSON output for the asset resolver.
//
// Inspect runs ffprobe against a local path or any URL ffprobe can open and
// returns a Result; Parse decodes a captured payload. The helpers on Result
// answer the questions the editing model asks of an asset: how long is it and
// which media types does it carry.
package ffprobe
