package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-match/internal/customers"
	"github.com/sells-group/prospect-match/internal/export"
	"github.com/sells-group/prospect-match/internal/judge"
	"github.com/sells-group/prospect-match/internal/model"
	"github.com/sells-group/prospect-match/internal/refine"
	"github.com/sells-group/prospect-match/internal/store"
)

// matchFlags holds the flags of the match command.
type matchFlags struct {
	customers       string
	description     string
	descriptionFile string
	noAI            bool
	format          string
	output          string
	save            bool
}

var matchOpts matchFlags

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank a customer file against a prospect description",
	Example: `  prospect-match match --customers klanten.xlsx --description "Sector: Transport, dealer network"
  prospect-match match --customers klanten.csv --description-file prospect.txt --format csv --output .`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("match"); err != nil {
			return err
		}

		desc, err := readDescription(matchOpts.description, matchOpts.descriptionFile)
		if err != nil {
			return err
		}
		format, err := export.ParseFormat(matchOpts.format)
		if err != nil {
			return err
		}

		pool, err := customers.Load(ctx, matchOpts.customers)
		if err != nil {
			return err
		}

		useAI := cfg.Matching.UseAI && !matchOpts.noAI
		var j judge.Judge
		if useAI {
			j, err = judge.FromConfig(ctx, cfg.Judge)
			if err != nil {
				return err
			}
		}

		res := runMatch(ctx, j, refine.OptionsFromConfig(cfg.Matching), desc, pool, useAI)

		if matchOpts.save {
			if err := saveRun(ctx, desc, len(pool), useAI, res); err != nil {
				return err
			}
		}

		return writeResult(cmd.OutOrStdout(), matchOpts.output, format, res, time.Now())
	},
}

func init() {
	f := matchCmd.Flags()
	f.StringVar(&matchOpts.customers, "customers", "", "customer file (.xlsx, .csv, .tsv)")
	f.StringVar(&matchOpts.description, "description", "", "prospect description")
	f.StringVar(&matchOpts.descriptionFile, "description-file", "", "read the prospect description from a file (- for stdin)")
	f.BoolVar(&matchOpts.noAI, "no-ai", false, "rank locally without the AI judge")
	f.StringVar(&matchOpts.format, "format", "table", "output format: table, csv, json")
	f.StringVar(&matchOpts.output, "output", "", "output file, or a directory for a dated file name (default stdout)")
	f.BoolVar(&matchOpts.save, "save", false, "save the run to the history store")
	_ = matchCmd.MarkFlagRequired("customers")
	matchCmd.MarkFlagsMutuallyExclusive("description", "description-file")
	rootCmd.AddCommand(matchCmd)
}

// runMatch runs one search and logs its progress events.
func runMatch(ctx context.Context, j judge.Judge, opts refine.Options, desc string, pool []model.CustomerRecord, useAI bool) *model.MatchResult {
	engine := refine.New(j, opts)
	res := engine.Run(ctx, refine.Request{
		Description: desc,
		Pool:        pool,
		UseAI:       useAI && j != nil,
		Sink: func(ev model.StatusEvent) {
			zap.L().Info(ev.Message,
				zap.String("stage", string(ev.Stage)),
				zap.Float64("progress", ev.Progress),
			)
		},
	})
	zap.L().Info("match complete",
		zap.String("outcome", string(res.Outcome)),
		zap.Int("matches", len(res.Matches)),
		zap.Float64("top_score", res.TopScore()),
		zap.Int("iterations", res.Iterations),
		zap.Bool("timed_out", res.TimedOut),
		zap.Duration("duration", res.Duration),
	)
	return res
}

func saveRun(ctx context.Context, desc string, poolSize int, useAI bool, res *model.MatchResult) error {
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	if st == nil {
		return eris.New("match: --save needs a store (set MATCH_STORE_DRIVER)")
	}
	defer st.Close() //nolint:errcheck

	run := store.NewRun(desc, poolSize, useAI, res)
	if err := st.SaveRun(ctx, &run); err != nil {
		return eris.Wrap(err, "match: save run")
	}
	zap.L().Info("run saved", zap.String("run_id", run.ID))
	return nil
}

// readDescription returns the inline description or the contents of file.
func readDescription(inline, file string) (string, error) {
	desc := inline
	switch file {
	case "":
	case "-":
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", eris.Wrap(err, "match: read description from stdin")
		}
		desc = string(b)
	default:
		b, err := os.ReadFile(file)
		if err != nil {
			return "", eris.Wrapf(err, "match: read description file %s", file)
		}
		desc = string(b)
	}
	if strings.TrimSpace(desc) == "" {
		return "", eris.New("match: a prospect description is required (--description or --description-file)")
	}
	return desc, nil
}

// writeResult writes res to stdout, to a file, or to a dated file inside a
// directory.
func writeResult(stdout io.Writer, output string, format export.Format, res *model.MatchResult, now time.Time) error {
	if output == "" || output == "-" {
		return export.Write(stdout, format, res)
	}

	path := output
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		path = filepath.Join(output, export.FileName(now, format))
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "match: create %s", path)
	}
	if err := export.Write(f, format, res); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "match: close %s", path)
	}
	fmt.Fprintf(os.Stderr, "Wrote %d matches to %s\n", len(res.Matches), path)
	return nil
}
