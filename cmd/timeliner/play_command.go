package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"timeliner/internal/ges"
	"timeliner/internal/project"
)

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var seek time.Duration

	cmd := &cobra.Command{
		Use:   "play [file]",
		Short: "Expose a committed project through a playable handle",
		Long: "Load and commit a project, register it under a playable uri and open that uri\n" +
			"the way a player would. The handle only lives for the duration of the command.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withProject(cmd.Context(), args, func(store *project.Store) error {
				s, err := ctx.loadSession(cmd.Context(), store)
				if err != nil {
					return err
				}
				defer s.close()
				if err := s.commit(cmd.Context()); err != nil {
					return err
				}

				handles := ges.NewHandles(cfg.Playback.URIScheme)
				handles.Install(s.engine)
				uri := handles.Register(s.timeline)
				defer handles.Unregister(uri)

				bin, err := s.engine.OpenURI(uri)
				if err != nil {
					return fmt.Errorf("open %s: %w", uri, err)
				}
				defer func() { _, _ = s.timeline.MakePlayable(false) }()

				if cmd.Flags().Changed("seek") {
					if err := s.timeline.Seek(seek); err != nil {
						return err
					}
				}

				node, err := s.engine.Describe(bin)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Handle: %s\n", uri)
				fmt.Fprintf(out, "Duration: %s\n\n", formatDuration(s.timeline.End()))
				rows := make([][]string, 0, len(node.Outputs))
				for i, output := range node.Outputs {
					rows = append(rows, []string{
						strconv.Itoa(i),
						string(s.engine.Caps(output.Target)),
						yesNo(output.Active),
					})
				}
				return writeTable(out, []string{"Output", "Caps", "Active"}, rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft})
			})
		},
	}

	cmd.Flags().DurationVar(&seek, "seek", 0, "Seek the exposed output to this position")
	return cmd
}
