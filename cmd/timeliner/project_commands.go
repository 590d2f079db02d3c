package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"timeliner/internal/ges"
	"timeliner/internal/logging"
	"timeliner/internal/project"
	"timeliner/internal/render"
	"timeliner/internal/xges"
)

func newProjectCommand(ctx *commandContext) *cobra.Command {
	projectCmd := &cobra.Command{
		Use:   "project",
		Short: "Create and edit timeline projects",
		Long: "Create and edit timeline projects.\n\n" +
			"Every subcommand takes the project file as its first argument and falls back\n" +
			"to paths.project_db when it is omitted.",
	}

	projectCmd.AddCommand(newProjectNewCommand(ctx))
	projectCmd.AddCommand(newProjectAddCommand(ctx))
	projectCmd.AddCommand(newProjectMoveCommand(ctx))
	projectCmd.AddCommand(newProjectRemoveCommand(ctx))
	projectCmd.AddCommand(newProjectShowCommand(ctx))
	projectCmd.AddCommand(newProjectCommitCommand(ctx))
	projectCmd.AddCommand(newProjectExportCommand(ctx))

	return projectCmd
}

func newProjectNewCommand(ctx *commandContext) *cobra.Command {
	var media string
	var force bool

	cmd := &cobra.Command{
		Use:   "new [file]",
		Short: "Create a project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("media") {
				media = ctx.defaultMediaType()
			}
			mt, err := ges.ParseMediaType(media)
			if err != nil {
				return err
			}
			if !mt.Concrete() || mt&^(ges.MediaTypeAudio|ges.MediaTypeVideo) != 0 {
				return fmt.Errorf("%w: %s for project", ges.ErrInvalidMediaType, mt)
			}
			return ctx.withProject(cmd.Context(), args, func(store *project.Store) error {
				existing, err := store.MediaType(cmd.Context())
				switch {
				case err == nil && !force:
					return fmt.Errorf("project %s already exists (%s); use --force to change its media type", store.Path(), existing)
				case err != nil && !errors.Is(err, project.ErrNoProject):
					return err
				}
				if err := store.Init(cmd.Context(), mt); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s project %s\n", mediaLabel(mt), store.Path())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&media, "media", "", "Media types of the project, e.g. video,audio (default timeline.media_types)")
	cmd.Flags().BoolVar(&force, "force", false, "Reinitialize an existing project")
	return cmd
}

// timingFlags are the edits shared by add and move.
type timingFlags struct {
	start    time.Duration
	inpoint  time.Duration
	duration time.Duration
	track    int
}

func (f *timingFlags) register(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&f.start, "start", 0, "Position on the timeline, e.g. 1.5s")
	cmd.Flags().DurationVar(&f.inpoint, "inpoint", 0, "Offset into the source media")
	cmd.Flags().DurationVar(&f.duration, "duration", 0, "Length on the timeline")
	cmd.Flags().IntVar(&f.track, "track", 0, "Track index for every media type of the object")
}

// apply performs the edits whose flags were given, inpoint first so a
// shortened asset window can still take the requested duration.
func (f *timingFlags) apply(cmd *cobra.Command, o *ges.Object) error {
	changed := cmd.Flags().Changed
	if changed("inpoint") && !o.SetInpoint(f.inpoint) {
		return fmt.Errorf("inpoint %s rejected", f.inpoint)
	}
	if changed("duration") && !o.SetDuration(f.duration) {
		return fmt.Errorf("duration %s rejected", f.duration)
	}
	if changed("start") && !o.SetStart(f.start) {
		return fmt.Errorf("start %s rejected", f.start)
	}
	if changed("track") {
		for _, mt := range o.MediaType().Split() {
			if !o.SetTrackIndex(mt, f.track) {
				return fmt.Errorf("track %d rejected", f.track)
			}
		}
	}
	return nil
}

func (f *timingFlags) any(cmd *cobra.Command) bool {
	for _, name := range []string{"start", "inpoint", "duration", "track"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

// scratchEnv builds objects outside any timeline, for validation before
// they are stored.
func (c *commandContext) scratchEnv() (ges.Env, error) {
	logger, err := c.ensureLogger()
	if err != nil {
		return ges.Env{}, err
	}
	return c.env(render.NewEngine(logging.NewComponentLogger(logger, "render")))
}

func buildObject(ctx context.Context, env ges.Env, kind string, mt ges.MediaType, pattern, uri string) (*ges.Object, error) {
	single := len(mt.Split()) == 1
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "test":
		if uri != "" {
			return nil, errors.New("--uri is only valid with --kind uri")
		}
		if single {
			s, err := ges.NewTestSource(env.Graph, mt, pattern, ges.WithLogger(env.Logger))
			if err != nil {
				return nil, err
			}
			return s.Object, nil
		}
		c, err := ges.NewTestClip(env.Graph, mt, pattern, ges.WithLogger(env.Logger))
		if err != nil {
			return nil, err
		}
		return c.Object, nil
	case "uri":
		if uri == "" {
			return nil, errors.New("--uri is required with --kind uri")
		}
		if single {
			s, err := ges.NewURISource(ctx, env, uri, mt)
			if err != nil {
				return nil, err
			}
			return s.Object, nil
		}
		c, err := ges.NewURIClip(ctx, env, uri, mt)
		if err != nil {
			return nil, err
		}
		return c.Object, nil
	}
	return nil, fmt.Errorf("unknown object kind %q (want test or uri)", kind)
}

func newProjectAddCommand(ctx *commandContext) *cobra.Command {
	var (
		kind    string
		media   string
		pattern string
		uri     string
		timing  timingFlags
	)

	cmd := &cobra.Command{
		Use:   "add [file]",
		Short: "Add a generated or uri-backed object",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProject(cmd.Context(), args, func(store *project.Store) error {
				projectType, err := store.MediaType(cmd.Context())
				if err != nil {
					return err
				}
				mt := projectType
				if media != "" {
					if mt, err = ges.ParseMediaType(media); err != nil {
						return err
					}
				}
				if mt&projectType == 0 {
					return fmt.Errorf("%w: %s into %s", ges.ErrMediaTypeMismatch, mt, projectType)
				}

				env, err := ctx.scratchEnv()
				if err != nil {
					return err
				}
				o, err := buildObject(cmd.Context(), env, kind, mt, pattern, uri)
				if err != nil {
					return err
				}
				if o.Duration() == 0 && !cmd.Flags().Changed("duration") {
					return errors.New("--duration is required when the source length is unknown")
				}
				if err := timing.apply(cmd, o); err != nil {
					return err
				}
				rec, ok := o.Serialize()
				if !ok {
					return fmt.Errorf("%s objects cannot be stored", o.Kind())
				}
				if err := store.PutRecord(cmd.Context(), rec); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s at %s for %s\n",
					o.Kind(), shortID(rec.ID), formatDuration(o.Start()), formatDuration(o.Duration()))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "test", "Object kind: test or uri")
	cmd.Flags().StringVar(&media, "media", "", "Media types of the object (default: the project's)")
	cmd.Flags().StringVar(&pattern, "pattern", "", "Test pattern or wave name")
	cmd.Flags().StringVar(&uri, "uri", "", "Media uri for --kind uri")
	timing.register(cmd)
	return cmd
}

// splitObjectArgs separates the optional project file from the object id.
func splitObjectArgs(args []string) ([]string, string) {
	return args[:len(args)-1], args[len(args)-1]
}

func newProjectMoveCommand(ctx *commandContext) *cobra.Command {
	var timing timingFlags

	cmd := &cobra.Command{
		Use:   "move [file] <id>",
		Short: "Change the timing or track of an object",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !timing.any(cmd) {
				return errors.New("nothing to change; pass --start, --inpoint, --duration or --track")
			}
			projectArgs, id := splitObjectArgs(args)
			return ctx.withProject(cmd.Context(), projectArgs, func(store *project.Store) error {
				rec, err := store.Record(cmd.Context(), id)
				if err != nil {
					return err
				}
				env, err := ctx.scratchEnv()
				if err != nil {
					return err
				}
				o, err := ges.Deserialize(cmd.Context(), rec, env)
				if err != nil {
					return err
				}
				if err := timing.apply(cmd, o); err != nil {
					return err
				}
				updated, _ := o.Serialize()
				if err := store.PutRecord(cmd.Context(), updated); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Moved %s %s to %s (%s)\n",
					o.Kind(), shortID(updated.ID), formatDuration(o.Start()), trackLabel(o))
				return nil
			})
		},
	}

	timing.register(cmd)
	return cmd
}

func newProjectRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove [file] <id>",
		Short: "Remove an object",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectArgs, id := splitObjectArgs(args)
			return ctx.withProject(cmd.Context(), projectArgs, func(store *project.Store) error {
				rec, err := store.Record(cmd.Context(), id)
				if err != nil {
					return err
				}
				if err := store.DeleteRecord(cmd.Context(), rec.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s %s\n", rec.Type, shortID(rec.ID))
				return nil
			})
		},
	}
}

func newProjectShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show [file]",
		Short: "List the objects and transitions of a project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProject(cmd.Context(), args, func(store *project.Store) error {
				s, err := ctx.loadSession(cmd.Context(), store)
				if err != nil {
					return err
				}
				defer s.close()
				if err := s.commit(cmd.Context()); err != nil {
					return err
				}
				view := newProjectView(store.Path(), s.timeline)
				if jsonOutput {
					return writeJSON(cmd, view)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Project: %s\n", view.Path)
				fmt.Fprintf(out, "Media: %s\n", view.MediaType)
				fmt.Fprintf(out, "End: %s\n\n", view.End)
				if len(view.Objects) == 0 {
					fmt.Fprintln(out, "No objects")
					return nil
				}
				if err := writeTable(out, objectHeaders, objectRows(view.Objects), objectAligns); err != nil {
					return err
				}
				if len(view.Transitions) == 0 {
					return nil
				}
				fmt.Fprintln(out)
				return writeTable(out, transitionHeaders, transitionRows(view.Transitions), transitionAligns)
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the project as JSON")
	return cmd
}

func newProjectCommitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "commit [file]",
		Short: "Recompute transitions and save the project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProject(cmd.Context(), args, func(store *project.Store) error {
				s, err := ctx.loadSession(cmd.Context(), store)
				if err != nil {
					return err
				}
				defer s.close()

				var created int
				unsubscribe := s.timeline.OnTransition(func(ev ges.TransitionEvent) {
					if ev.Kind == ges.TransitionCreated {
						created++
					}
				})
				defer unsubscribe()

				if err := s.commit(cmd.Context()); err != nil {
					return err
				}
				if err := store.Save(cmd.Context(), s.timeline); err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				transitions := newTransitionViews(s.timeline)
				fmt.Fprintf(out, "Committed %d objects, %d transitions\n", s.timeline.Len(), created)
				if len(transitions) == 0 {
					return nil
				}
				return writeTable(out, transitionHeaders, transitionRows(transitions), transitionAligns)
			})
		},
	}
}

func newProjectExportCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Write the committed project as an xges document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProject(cmd.Context(), args, func(store *project.Store) error {
				s, err := ctx.loadSession(cmd.Context(), store)
				if err != nil {
					return err
				}
				defer s.close()
				if err := s.commit(cmd.Context()); err != nil {
					return err
				}

				if output == "" || output == "-" {
					return xges.Encode(cmd.OutOrStdout(), s.timeline)
				}
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create %s: %w", output, err)
				}
				if err := xges.Encode(f, s.timeline); err != nil {
					_ = f.Close()
					return fmt.Errorf("export: %w", err)
				}
				if err := f.Close(); err != nil {
					return fmt.Errorf("close %s: %w", output, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d objects to %s\n", s.timeline.Len(), output)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "-", "Destination file, - for stdout")
	return cmd
}
