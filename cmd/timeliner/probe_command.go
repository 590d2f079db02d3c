package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"timeliner/internal/asset"
)

type probeResult struct {
	URI      string `json:"uri"`
	Resolved string `json:"resolved_uri"`
	Duration string `json:"duration"`
	Nanos    int64  `json:"duration_ns"`
	HasVideo bool   `json:"has_video"`
	HasAudio bool   `json:"has_audio"`
}

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "probe <uri>...",
		Short: "Resolve media uris and print their duration and streams",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			resolver, _, err := asset.NewFromConfig(cfg, logger)
			if err != nil {
				return err
			}

			results := make([]probeResult, 0, len(args))
			for _, uri := range args {
				info, err := resolver.Resolve(cmd.Context(), uri)
				if err != nil {
					return fmt.Errorf("probe %s: %w", uri, err)
				}
				results = append(results, probeResult{
					URI:      uri,
					Resolved: info.URI,
					Duration: info.Duration.String(),
					Nanos:    info.Duration.Nanoseconds(),
					HasVideo: info.HasVideo,
					HasAudio: info.HasAudio,
				})
			}

			if jsonOutput {
				return writeJSON(cmd, results)
			}
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{r.URI, r.Duration, yesNo(r.HasVideo), yesNo(r.HasAudio)})
			}
			return writeTable(cmd.OutOrStdout(),
				[]string{"URI", "Duration", "Video", "Audio"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
			)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	return cmd
}
