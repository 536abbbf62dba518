package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fluxCapacitor/internal/admin"
	"fluxCapacitor/internal/allowlist"
	"fluxCapacitor/internal/config"
	"fluxCapacitor/internal/events"
	"fluxCapacitor/internal/indexer"
	"fluxCapacitor/internal/metrics"
	"fluxCapacitor/internal/model"
	"fluxCapacitor/internal/sink"
	"fluxCapacitor/internal/storage"
	"fluxCapacitor/internal/stream"
)

const shutdownTimeout = 5 * time.Second

func runIndexer(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	allow := allowlist.New(store, logger, cfg.Accounts...)
	if err := allow.Load(ctx); err != nil {
		return err
	}
	m.SetAllowListSize(allow.Len())

	source, closeSource, err := newSource(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	runner := indexer.NewRunner(
		indexer.RunConfig{AuthToken: cfg.APIToken},
		allow,
		events.NewDecoder(),
		sink.NewHTTPSink(cfg.PublicAPI, cfg.SinkTimeout, logger),
		m,
		logger,
	)

	adminServer := admin.NewServer(cfg.AdminAddr, cfg.APIToken, allow, reg, m, logger)
	adminErr, err := adminServer.Start()
	if err != nil {
		return err
	}

	logger.Info("indexer start",
		zap.String("public_api", cfg.PublicAPI),
		zap.String("admin_addr", cfg.AdminAddr),
		zap.String("source", cfg.Source),
		zap.String("store_driver", cfg.Store.Driver),
		zap.String("store_dsn", redactDSN(cfg.Store.DSN)),
		zap.Int("allowlist_size", allow.Len()),
		zap.Int("buffer", cfg.Buffer),
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	blocks := make(chan model.StreamerMessage, cfg.Buffer)
	g.Go(func() error {
		defer close(blocks)
		return source.Stream(gctx, blocks)
	})
	g.Go(func() error {
		// The consumer ending, for any reason, stops the admin server.
		defer cancel()
		return runner.Run(gctx, blocks)
	})
	g.Go(func() error {
		select {
		case err, ok := <-adminErr:
			if ok && err != nil {
				return err
			}
			return nil
		case <-gctx.Done():
		}
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		return adminServer.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("indexer stopped")
	return nil
}

func openStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (storage.AllowListStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return storage.Open(ctx, storage.Config{
		Driver:       cfg.Driver,
		DSN:          cfg.DSN,
		Database:     cfg.Database,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, logger)
}

func newSource(cfg config.Config, logger *zap.Logger) (stream.Source, func(), error) {
	switch cfg.Source {
	case "kafka":
		src, err := stream.NewKafkaSource(stream.KafkaConfig{
			Brokers:     cfg.Kafka.Brokers,
			Topic:       cfg.Kafka.Topic,
			GroupID:     cfg.Kafka.GroupID,
			StartOffset: cfg.Kafka.StartOffset,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return src, func() {
			if err := src.Close(); err != nil {
				logger.Warn("close kafka source", zap.Error(err))
			}
		}, nil
	default:
		return stream.NewJSONLSource(cfg.In, logger), func() {}, nil
	}
}
