package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lokasewa/evaluator/internal/projectconfig"
	"github.com/lokasewa/evaluator/internal/session"
)

func newTrailCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trail",
		Short: "View recorded evaluation trails",
		Long: `View evaluation trail files.

Trails are NDJSON files written during evaluations when --trail is enabled.
They record the full lifecycle: evaluation start, each agent's execution,
resolved costs, and completion.`,
	}

	cmd.AddCommand(newTrailListCommand())
	cmd.AddCommand(newTrailViewCommand())

	return cmd
}

func newTrailListCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded evaluation trails",
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return err
			}

			files, err := session.ListTrails(absDir)
			if err != nil {
				return fmt.Errorf("listing trails: %w", err)
			}

			if len(files) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No evaluation trails found.")
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%-44s %-8s %s\n", "File", "Events", "Modified")
			fmt.Fprintln(cmd.OutOrStdout(), "─────────────────────────────────────────────────────────────────")
			for _, f := range files {
				fmt.Fprintf(cmd.OutOrStdout(), "%-44s %-8d %s\n",
					f.Name, f.NumEvents, f.ModTime.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", projectconfig.DefaultTrailDir, "Directory to search for trails")

	return cmd
}

func newTrailViewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view <trail-file>",
		Short: "Render one evaluation trail as a timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := session.ReadEvents(args[0])
			if err != nil {
				return err
			}
			session.RenderTimeline(cmd.OutOrStdout(), events)
			return nil
		},
	}

	return cmd
}
