package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-match/internal/config"
	"github.com/sells-group/prospect-match/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "prospect-match",
	Short: "Rank existing customers against a prospect profile",
	Long:  "Scores a customer pool against a free-text prospect description, optionally refines the ranking with an AI judge, and keeps a history of runs.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// openStore opens and migrates the configured run history store. Driver
// "none" returns a nil store.
func openStore(ctx context.Context) (store.Store, error) {
	if cfg.Store.Driver == "" || cfg.Store.Driver == "none" {
		return nil, nil
	}
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
