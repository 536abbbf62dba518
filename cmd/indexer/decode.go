package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fluxCapacitor/internal/allowlist"
	"fluxCapacitor/internal/config"
	"fluxCapacitor/internal/events"
	"fluxCapacitor/internal/indexer"
	"fluxCapacitor/internal/model"
	"fluxCapacitor/internal/stream"
)

func runDecode(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDecode(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}
	if cfg.Errors == "" {
		return fmt.Errorf("errors path is required")
	}
	if len(cfg.Accounts) == 0 {
		return fmt.Errorf("at least one account is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outWriter, err := newJSONLWriter(cfg.Out)
	if err != nil {
		return err
	}
	defer outWriter.Close()

	errWriter, err := newJSONLWriter(cfg.Errors)
	if err != nil {
		return err
	}
	defer errWriter.Close()

	logger.Info("decode start",
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
		zap.Strings("accounts", cfg.Accounts),
	)

	d := &offlineDecoder{
		filter:  indexer.NewFilter(allowlist.New(nil, logger, cfg.Accounts...)),
		decoder: events.NewDecoder(),
		out:     outWriter,
		errs:    errWriter,
	}

	g, gctx := errgroup.WithContext(ctx)
	blocks := make(chan model.StreamerMessage, 16)
	g.Go(func() error {
		defer close(blocks)
		return stream.NewJSONLSource(cfg.In, logger).Stream(gctx, blocks)
	})
	g.Go(func() error {
		for msg := range blocks {
			if err := d.block(msg); err != nil {
				return err
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("decode complete",
		zap.Int("blocks", d.blocks),
		zap.Int("lines", d.lines),
		zap.Int("decoded", d.decoded),
		zap.Int("skipped", d.skipped),
		zap.Int("failed", d.failed),
	)

	return nil
}

// offlineDecoder writes the events of each block instead of forwarding them.
type offlineDecoder struct {
	filter  *indexer.Filter
	decoder *events.Decoder
	out     *jsonlWriter
	errs    *jsonlWriter

	blocks, lines, decoded, skipped, failed int
}

func (d *offlineDecoder) block(msg model.StreamerMessage) error {
	d.blocks++
	return indexer.Walk(msg, d.filter, nil, func(ref indexer.LogRef, line string) error {
		d.lines++
		result, err := d.decoder.Decode(ref.ExecutorID, line)
		if err != nil {
			d.failed++
			kind := string(events.ParseError)
			var decodeErr *events.DecodeError
			if errors.As(err, &decodeErr) {
				kind = string(decodeErr.Kind)
			}
			writeDecodeError(d.errs, indexer.DecodeErrorRecord(ref, result.Tag, kind, err))
			return nil
		}
		if !result.Matched {
			d.skipped++
			return nil
		}
		for _, event := range result.Events {
			if err := d.out.Write(indexer.TypedEvent(ref, event)); err != nil {
				return err
			}
			d.decoded++
		}
		return nil
	})
}

type jsonlWriter struct {
	file   *os.File
	writer *bufio.Writer
}

func newJSONLWriter(path string) (*jsonlWriter, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	return &jsonlWriter{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

func (w *jsonlWriter) Write(value interface{}) error {
	line, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if _, err := w.writer.Write(line); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	return nil
}

func (w *jsonlWriter) Close() error {
	if w == nil {
		return nil
	}
	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

func writeDecodeError(writer *jsonlWriter, errRecord model.DecodeError) {
	if writer == nil {
		return
	}
	_ = writer.Write(errRecord)
}
