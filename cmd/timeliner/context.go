package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"timeliner/internal/asset"
	"timeliner/internal/config"
	"timeliner/internal/ges"
	"timeliner/internal/logging"
	"timeliner/internal/project"
	"timeliner/internal/render"
)

// commitTimeout bounds how long a command waits for the compositions to
// report that a commit has been applied.
const commitTimeout = 30 * time.Second

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// env wires a render graph to the resolver stack from the config.
func (c *commandContext) env(g render.Graph) (ges.Env, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return ges.Env{}, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return ges.Env{}, err
	}
	resolver, policy, err := asset.NewFromConfig(cfg, logging.NewComponentLogger(logger, "asset"))
	if err != nil {
		return ges.Env{}, err
	}
	return ges.Env{Graph: g, Resolver: resolver, Policy: policy, Logger: logger}, nil
}

func (c *commandContext) timelineOptions() []ges.Option {
	cfg := c.config
	if cfg == nil {
		return nil
	}
	return []ges.Option{ges.WithBackground(cfg.Timeline.VideoBackgroundPattern, cfg.Timeline.AudioBackgroundWave)}
}

// defaultMediaType is the media type of new projects, from timeline.media_types.
func (c *commandContext) defaultMediaType() string {
	if c.config == nil || len(c.config.Timeline.MediaTypes) == 0 {
		return "video,audio"
	}
	return strings.Join(c.config.Timeline.MediaTypes, ",")
}

// projectPath returns the project named on the command line, or the
// configured default project.
func (c *commandContext) projectPath(args []string) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return config.ExpandPath(strings.TrimSpace(args[0]))
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	return cfg.Paths.ProjectDB, nil
}

// withProject opens the project file, holding its lock until fn returns.
func (c *commandContext) withProject(ctx context.Context, args []string, fn func(*project.Store) error) error {
	path, err := c.projectPath(args)
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}
	store, err := project.Open(path, logging.WithContext(ctx, logger))
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// session is a timeline loaded from a project together with its graph.
type session struct {
	engine   *render.Engine
	env      ges.Env
	timeline *ges.Timeline
}

func (c *commandContext) loadSession(ctx context.Context, store *project.Store) (*session, error) {
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	engine := render.NewEngine(logging.NewComponentLogger(logger, "render"))
	env, err := c.env(engine)
	if err != nil {
		return nil, err
	}
	env.Logger = logging.WithContext(ctx, env.Logger)
	tl, err := store.Load(ctx, env, c.timelineOptions()...)
	if err != nil {
		return nil, err
	}
	return &session{engine: engine, env: env, timeline: tl}, nil
}

// commit recomputes transitions and waits for every composition to apply them.
func (s *session) commit(ctx context.Context) error {
	if err := s.timeline.Commit(); err != nil {
		return err
	}
	waitCtx, cancel := context.WithTimeout(ctx, commitTimeout)
	defer cancel()
	if err := s.timeline.WaitIdle(waitCtx); err != nil {
		return fmt.Errorf("wait for commit: %w", err)
	}
	return nil
}

func (s *session) close() {
	_ = s.timeline.Close()
	s.engine.Wait()
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
