package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"fluxCapacitor/internal/events"
	"fluxCapacitor/internal/metrics"
	"fluxCapacitor/internal/model"
	"fluxCapacitor/internal/sink"
)

// RunConfig holds runtime settings for the consumer.
type RunConfig struct {
	// AuthToken is sent with every forwarded event.
	AuthToken string
}

// Runner consumes streamer messages and forwards the events of trusted
// contracts, one at a time and in stream order.
type Runner struct {
	cfg     RunConfig
	filter  *Filter
	decoder *events.Decoder
	sink    sink.Sink
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, allow AllowList, decoder *events.Decoder, eventSink sink.Sink, m *metrics.Metrics, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if decoder == nil {
		decoder = events.NewDecoder()
	}
	return &Runner{
		cfg:     cfg,
		filter:  NewFilter(allow),
		decoder: decoder,
		sink:    eventSink,
		metrics: m,
		logger:  logger,
	}
}

type blockStats struct {
	forwarded int
	failed    int
	decodeErr int
}

// Run processes blocks until the channel is closed or ctx is done. Per-line
// failures are logged and never stop the loop.
func (r *Runner) Run(ctx context.Context, blocks <-chan model.StreamerMessage) error {
	if r.sink == nil {
		return fmt.Errorf("sink is nil")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-blocks:
			if !ok {
				r.logger.Info("block stream closed")
				return nil
			}
			if err := r.ProcessBlock(ctx, msg); err != nil {
				return err
			}
		}
	}
}

// ProcessBlock handles one streamer message. It only returns an error when
// ctx is done.
func (r *Runner) ProcessBlock(ctx context.Context, msg model.StreamerMessage) error {
	height := msg.Block.Header.Height
	r.logger.Debug("block", zap.Uint64("height", height), zap.Int("shards", len(msg.Shards)))

	var stats blockStats
	err := Walk(msg, r.filter, r.metrics.ObserveOutcome, func(ref LogRef, line string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.handleLine(ctx, ref, line, &stats)
		return nil
	})
	if err != nil {
		return err
	}

	r.metrics.ObserveBlock(height)
	if stats.forwarded+stats.failed+stats.decodeErr > 0 {
		r.logger.Info("block processed",
			zap.Uint64("height", height),
			zap.Int("forwarded", stats.forwarded),
			zap.Int("forward_failed", stats.failed),
			zap.Int("decode_failed", stats.decodeErr),
		)
	}
	return nil
}

func (r *Runner) handleLine(ctx context.Context, ref LogRef, line string, stats *blockStats) {
	result, err := r.decoder.Decode(ref.ExecutorID, line)
	if err != nil {
		stats.decodeErr++
		kind := string(events.ParseError)
		var decodeErr *events.DecodeError
		if errors.As(err, &decodeErr) {
			kind = string(decodeErr.Kind)
		}
		r.metrics.IncDecodeError(kind)
		r.logger.Warn("decode log failed",
			zap.String("contract_id", ref.ExecutorID),
			zap.String("tag", result.Tag),
			zap.Uint64("height", ref.BlockHeight),
			zap.String("receipt_id", ref.ReceiptID),
			zap.Int("log_index", ref.LogIndex),
			zap.Error(err),
		)
		return
	}
	if !result.Matched {
		r.metrics.IncUnmatched()
		if result.Tag != "" {
			r.logger.Debug("unknown event tag", zap.String("contract_id", ref.ExecutorID), zap.String("tag", result.Tag))
		}
		return
	}

	for _, event := range result.Events {
		start := time.Now()
		err := r.sink.Forward(ctx, event, ref.ExecutorID, r.cfg.AuthToken)
		r.metrics.RecordForward(string(event.Kind()), err, time.Since(start).Seconds())
		if err != nil {
			stats.failed++
			r.logger.Error("forward event failed",
				zap.String("contract_id", ref.ExecutorID),
				zap.String("tag", result.Tag),
				zap.String("kind", string(event.Kind())),
				zap.Uint64("height", ref.BlockHeight),
				zap.String("receipt_id", ref.ReceiptID),
				zap.Error(err),
			)
			continue
		}
		stats.forwarded++
	}
}
