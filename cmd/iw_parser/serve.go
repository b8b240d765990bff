package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"iw_parser/internal/api"
	"iw_parser/internal/ingest"
	"iw_parser/internal/storage"
)

func (a *app) serveCmd() *cobra.Command {
	var (
		natsURL  string
		httpAddr string
		noNATS   bool
		noHTTP   bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the NATS ingest service and the HTTP API",
		Long: `Serve consumes screens from the configured NATS subject and answers
HTTP requests on /api/v1 until interrupted. Outcomes are persisted when
storage.driver is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if natsURL != "" {
				a.cfg.NATS.URL = natsURL
			}
			if httpAddr != "" {
				a.cfg.API.Addr = httpAddr
			}
			if noNATS && noHTTP {
				return fmt.Errorf("nothing to serve with both --no-nats and --no-http")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, !noNATS, !noHTTP)
		},
	}
	cmd.Flags().StringVar(&natsURL, "nats", "", "NATS server URL (overrides nats.url)")
	cmd.Flags().StringVar(&httpAddr, "http", "", "HTTP listen address (overrides api.addr)")
	cmd.Flags().BoolVar(&noNATS, "no-nats", false, "Do not consume from NATS")
	cmd.Flags().BoolVar(&noHTTP, "no-http", false, "Do not serve the HTTP API")
	return cmd
}

func (a *app) serve(ctx context.Context, withNATS, withHTTP bool) error {
	var store storage.Store
	if a.cfg.Storage.Driver != "" {
		var err error
		if store, err = storage.Open(ctx, a.cfg.Storage, a.log); err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
	}

	proc := &ingest.Processor{
		Registry: a.reg,
		Store:    store,
		Metrics:  ingest.NewMetrics(prometheus.DefaultRegisterer),
		Log:      a.log,
	}

	g, gctx := errgroup.WithContext(ctx)

	if withNATS {
		nc, err := nats.Connect(a.cfg.NATS.URL,
			nats.Name("iw_parser"),
			nats.RetryOnFailedConnect(true),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(time.Second),
		)
		if err != nil {
			return fmt.Errorf("connect to NATS at %s: %w", a.cfg.NATS.URL, err)
		}
		defer nc.Close()
		a.log.Info("connected to NATS", zap.String("url", a.cfg.NATS.URL))

		svc := ingest.NewService(nc, proc, a.cfg.NATS, a.log)
		g.Go(func() error { return svc.Run(gctx) })
	}

	if withHTTP {
		srv := api.NewServer(proc, store, prometheus.DefaultGatherer, a.cfg.API, a.log)
		g.Go(func() error { return srv.Run(gctx) })
	}

	err := g.Wait()
	a.log.Info("shut down", zap.Error(err))
	return err
}
