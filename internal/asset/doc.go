// Package asset resolves media URIs into the facts the editing model needs:
// duration and which media types a file carries.
//
// Resolvers compose: NewFromConfig chains the native EBML probe ahead of
// ffprobe and puts a bounded cache in front. What happens when nothing can
// resolve a URI is the caller's decision, expressed as a Policy.
package asset
