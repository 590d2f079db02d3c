package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateResolver(); err != nil {
		return err
	}
	if err := c.validateTimeline(); err != nil {
		return err
	}
	return c.validatePlayback()
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
}

func (c *Config) validateResolver() error {
	if c.Resolver.TimeoutSeconds <= 0 {
		return errors.New("resolver.timeout_seconds must be positive")
	}
	switch c.Resolver.OnFailure {
	case OnFailureDegrade, OnFailureFail:
	default:
		return fmt.Errorf("resolver.on_failure must be %q or %q, got %q", OnFailureDegrade, OnFailureFail, c.Resolver.OnFailure)
	}
	return nil
}

func (c *Config) validateTimeline() error {
	if len(c.Timeline.MediaTypes) == 0 {
		return errors.New("timeline.media_types must include at least one media type")
	}
	for _, mt := range c.Timeline.MediaTypes {
		if mt != MediaVideo && mt != MediaAudio {
			return fmt.Errorf("timeline.media_types: unsupported media type %q", mt)
		}
	}
	return nil
}

func (c *Config) validatePlayback() error {
	for _, r := range c.Playback.URIScheme {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '+' && r != '-' && r != '.' {
			return fmt.Errorf("playback.uri_scheme: invalid character %q", r)
		}
	}
	if c.Playback.URIScheme == "" {
		return errors.New("playback.uri_scheme must be set")
	}
	return nil
}
