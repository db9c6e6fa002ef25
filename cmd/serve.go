package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-match/internal/customers"
	"github.com/sells-group/prospect-match/internal/judge"
	"github.com/sells-group/prospect-match/internal/model"
	"github.com/sells-group/prospect-match/internal/refine"
	"github.com/sells-group/prospect-match/internal/server"
)

var (
	servePort      int
	serveCustomers string
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the matching HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		var pool []model.CustomerRecord
		if serveCustomers != "" {
			p, err := customers.Load(ctx, serveCustomers)
			if err != nil {
				return err
			}
			pool = p
		}

		var j judge.Judge
		if cfg.Matching.UseAI {
			var err error
			if j, err = judge.FromConfig(ctx, cfg.Judge); err != nil {
				return err
			}
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
		}

		srv := server.New(refine.New(j, refine.OptionsFromConfig(cfg.Matching)), server.Options{
			Pool:           pool,
			UseAI:          j != nil,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Store:          st,
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		return listen(ctx, &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		})
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveCustomers, "customers", "", "default customer file for requests without their own pool")
	rootCmd.AddCommand(serveCmd)
}

// listen serves until ctx is cancelled, then shuts down gracefully.
func listen(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("starting server", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server shutdown")
	}
	return nil
}
