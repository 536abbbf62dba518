// Package stream produces streamer messages for the consumer.
package stream

import (
	"context"

	"fluxCapacitor/internal/model"
)

// Source writes streamer messages to out in chain order. It blocks while out
// is full and returns when the input is exhausted or ctx is done. Sources do
// not close out.
type Source interface {
	Stream(ctx context.Context, out chan<- model.StreamerMessage) error
}

func send(ctx context.Context, out chan<- model.StreamerMessage, msg model.StreamerMessage) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case out <- msg:
		return nil
	}
}
