package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeResolver()
	c.normalizeTimeline()
	c.Playback.URIScheme = strings.ToLower(strings.TrimSpace(c.Playback.URIScheme))
	if c.Playback.URIScheme == "" {
		c.Playback.URIScheme = defaultURIScheme
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir()
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ProjectDB) == "" {
		c.Paths.ProjectDB = defaultProjectDB
	}
	if c.Paths.ProjectDB, err = expandPath(c.Paths.ProjectDB); err != nil {
		return fmt.Errorf("paths.project_db: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeResolver() {
	if value, ok := os.LookupEnv("TIMELINER_FFPROBE"); ok && strings.TrimSpace(value) != "" {
		c.Resolver.FFprobeBinary = strings.TrimSpace(value)
	}
	c.Resolver.FFprobeBinary = strings.TrimSpace(c.Resolver.FFprobeBinary)
	if c.Resolver.FFprobeBinary == "" {
		c.Resolver.FFprobeBinary = defaultFFprobeBinary
	}
	c.Resolver.OnFailure = strings.ToLower(strings.TrimSpace(c.Resolver.OnFailure))
	if c.Resolver.OnFailure == "" {
		c.Resolver.OnFailure = OnFailureDegrade
	}
	if c.Resolver.CacheEntries < 0 {
		c.Resolver.CacheEntries = 0
	}
}

func (c *Config) normalizeTimeline() {
	types := make([]string, 0, len(c.Timeline.MediaTypes))
	seen := make(map[string]struct{}, len(c.Timeline.MediaTypes))
	for _, mt := range c.Timeline.MediaTypes {
		normalized := strings.ToLower(strings.TrimSpace(mt))
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		types = append(types, normalized)
	}
	if len(types) == 0 {
		types = []string{MediaVideo, MediaAudio}
	}
	c.Timeline.MediaTypes = types
	c.Timeline.VideoBackgroundPattern = strings.ToLower(strings.TrimSpace(c.Timeline.VideoBackgroundPattern))
	if c.Timeline.VideoBackgroundPattern == "" {
		c.Timeline.VideoBackgroundPattern = defaultVideoBackgroundPattern
	}
	c.Timeline.AudioBackgroundWave = strings.ToLower(strings.TrimSpace(c.Timeline.AudioBackgroundWave))
	if c.Timeline.AudioBackgroundWave == "" {
		c.Timeline.AudioBackgroundWave = defaultAudioBackgroundWave
	}
}
