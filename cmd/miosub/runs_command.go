package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"miosub/internal/config"
	"miosub/internal/runstore"
	"miosub/internal/subtitle"
)

func newRunsCommand(cmdCtx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect run history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRuns(cmd, cmdCtx, 20)
		},
	}

	runsCmd.AddCommand(newRunsShowCommand(cmdCtx))
	runsCmd.AddCommand(newRunsExportCommand(cmdCtx))
	runsCmd.AddCommand(newRunsClearCommand(cmdCtx))
	return runsCmd
}

func listRuns(cmd *cobra.Command, cmdCtx *commandContext, limit int) error {
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return err
	}
	return withStore(cfg, func(store *runstore.Store) error {
		runs, err := store.List(cmd.Context(), limit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs recorded")
			return nil
		}
		rows := make([][]string, 0, len(runs))
		for _, run := range runs {
			rows = append(rows, []string{
				run.ID,
				run.MediaPath,
				string(run.Status),
				fmt.Sprintf("%d/%d", run.ChunksCompleted, run.ChunksTotal),
				strconv.Itoa(len(run.Segments)),
				run.CreatedAt.Local().Format("2006-01-02 15:04"),
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Run", "Source", "Status", "Chunks", "Segments", "Started"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
		))
		return nil
	})
}

func newRunsShowCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			return withStore(cfg, func(store *runstore.Store) error {
				run, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run:      %s\n", run.ID)
				fmt.Fprintf(out, "Source:   %s\n", run.MediaPath)
				fmt.Fprintf(out, "Status:   %s\n", run.Status)
				fmt.Fprintf(out, "Chunks:   %d/%d\n", run.ChunksCompleted, run.ChunksTotal)
				fmt.Fprintf(out, "Segments: %d\n", len(run.Segments))
				if run.Error != "" {
					fmt.Fprintf(out, "Error:    %s\n", run.Error)
				}
				if len(run.Glossary) > 0 {
					fmt.Fprintln(out, renderGlossaryTable(run.Glossary))
				}
				return nil
			})
		},
	}
}

func newRunsExportCommand(cmdCtx *commandContext) *cobra.Command {
	var outputPath string
	var bilingual bool

	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Write a stored run's segments to an SRT file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			return withStore(cfg, func(store *runstore.Store) error {
				run, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if len(run.Segments) == 0 {
					return fmt.Errorf("run %s has no segments to export", run.ID)
				}
				target := outputPath
				if target == "" {
					target = run.ID + ".srt"
				}
				content := subtitle.RenderSRT(subtitle.Assemble(run.Segments), bilingual)
				if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", target, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d segments to %s\n", len(run.Segments), target)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output subtitle path (defaults to <run-id>.srt)")
	cmd.Flags().BoolVar(&bilingual, "bilingual", false, "Render translation above the original text")
	return cmd
}

func newRunsClearCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			return withStore(cfg, func(store *runstore.Store) error {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d runs\n", removed)
				return nil
			})
		},
	}
}

func withStore(cfg *config.Config, fn func(*runstore.Store) error) error {
	store, err := runstore.Open(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return fn(store)
}
