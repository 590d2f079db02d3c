package config

const (
	defaultConfigPath             = "~/.config/timeliner/config.toml"
	defaultLogDir                 = "~/.local/share/timeliner/logs"
	defaultProjectDB              = "~/.local/share/timeliner/default.timeline"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultFFprobeBinary          = "ffprobe"
	defaultResolverTimeoutSeconds = 30
	defaultResolverCacheEntries   = 256
	defaultVideoBackgroundPattern = "black"
	defaultAudioBackgroundWave    = "silence"
	defaultURIScheme              = "ges"
)

// Resolver failure policies accepted by resolver.on_failure.
const (
	OnFailureDegrade = "degrade"
	OnFailureFail    = "fail"
)

// Media type names accepted by timeline.media_types.
const (
	MediaVideo = "video"
	MediaAudio = "audio"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:  defaultStateDir(),
			LogDir:    defaultLogDir,
			ProjectDB: defaultProjectDB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Resolver: Resolver{
			FFprobeBinary:  defaultFFprobeBinary,
			TimeoutSeconds: defaultResolverTimeoutSeconds,
			OnFailure:      OnFailureDegrade,
			NativeEBML:     true,
			CacheEntries:   defaultResolverCacheEntries,
		},
		Timeline: Timeline{
			MediaTypes:             []string{MediaVideo, MediaAudio},
			VideoBackgroundPattern: defaultVideoBackgroundPattern,
			AudioBackgroundWave:    defaultAudioBackgroundWave,
		},
		Playback: Playback{
			URIScheme: defaultURIScheme,
		},
	}
}
