// Package config loads, normalizes, and validates timeliner configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the TIMELINER_FFPROBE
// environment override. Obtain settings through Load so downstream code
// receives expanded paths, canonical log formats, and clear validation errors.
package config
