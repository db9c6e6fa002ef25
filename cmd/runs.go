package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/prospect-match/internal/model"
	"github.com/sells-group/prospect-match/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect match run history",
	Long:  "Commands for listing and viewing saved match runs and the patterns learned from them.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("runs"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		minScore, _ := cmd.Flags().GetFloat64("min-score")

		runs, err := st.ListRuns(ctx, store.RunFilter{MinScore: minScore, Limit: limit, Offset: offset})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(cmd.OutOrStdout(), runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("runs"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// -- runs patterns --

var runsPatternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List patterns learned from high-scoring runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("runs"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		patterns, err := st.ListPatterns(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "runs patterns")
		}

		if len(patterns) == 0 {
			fmt.Fprintln(os.Stderr, "No learned patterns yet.")
			return nil
		}

		formatPatterns(cmd.OutOrStdout(), patterns)
		return nil
	},
}

func init() {
	runsListCmd.Flags().Int("limit", store.DefaultListLimit, "max number of runs to display")
	runsListCmd.Flags().Int("offset", 0, "number of runs to skip")
	runsListCmd.Flags().Float64("min-score", 0, "only runs whose top score is at least this")

	runsPatternsCmd.Flags().Int("limit", store.DefaultPatternLimit, "max number of patterns to display")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsPatternsCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tDESCRIPTION\tPOOL\tAI\tTOP\tITER\tSTAGE\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t-----------\t----\t--\t---\t----\t-----\t-------")

	for _, r := range runs {
		ai := "no"
		if r.UseAI {
			ai = "yes"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%.0f%%\t%d\t%s\t%s\n",
			truncateID(r.ID),
			shorten(r.Description, 40),
			r.PoolSize,
			ai,
			r.TopScore*100,
			r.Iterations,
			r.FinalStage,
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatPatterns writes learned patterns to w.
func formatPatterns(out io.Writer, patterns []model.LearnedPattern) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RUN\tPATTERN\tSCORE\tTOP MATCH\tCREATED")
	for _, p := range patterns {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.0f%%\t%s\t%s\n",
			truncateID(p.RunID),
			p.Pattern,
			p.Score*100,
			p.TopMatch,
			p.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// shorten collapses newlines and truncates s to n runes.
func shorten(s string, n int) string {
	r := []rune(s)
	for i, c := range r {
		if c == '\n' || c == '\r' || c == '\t' {
			r[i] = ' '
		}
	}
	if len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return string(r)
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
