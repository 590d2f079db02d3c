// Package ebmlprobe reads duration and track types out of WebM and Matroska
// headers without spawning ffprobe.
//
// Local files are opened directly; http(s) URLs are read through range
// requests so only the header bytes are fetched.
package ebmlprobe
