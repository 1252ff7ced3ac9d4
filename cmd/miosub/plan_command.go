package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"miosub/internal/chunk"
	"miosub/internal/media"
	"miosub/internal/subtitle"
)

func newPlanCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <media-file>",
		Short: "Show the chunk plan for a media file without processing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			prober := media.FFProbe{Binary: cfg.FFprobeBinary()}
			info, err := prober.Probe(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			chunks, err := chunk.Plan(info.DurationSeconds, cfg.Pipeline.ChunkSeconds)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Duration: %s (%d chunks of %.0fs)\n",
				subtitle.FormatTimestamp(info.DurationSeconds), len(chunks), cfg.Pipeline.ChunkSeconds)

			rows := make([][]string, 0, len(chunks))
			for _, c := range chunks {
				rows = append(rows, []string{
					strconv.Itoa(c.Index),
					subtitle.FormatTimestamp(c.Start),
					subtitle.FormatTimestamp(c.End),
					fmt.Sprintf("%.0fs", c.Duration()),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Chunk", "Start", "End", "Length"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
}
