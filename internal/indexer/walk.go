package indexer

import (
	"fluxCapacitor/internal/model"
)

// LogRef locates one log line inside a streamer message.
type LogRef struct {
	BlockHeight uint64
	BlockHash   string
	ShardID     uint64
	ReceiptID   string
	ExecutorID  string
	LogIndex    int
}

// Walk calls fn for every log line of every eligible outcome in msg, in
// shard, outcome and log order. It stops at the first error fn returns.
func Walk(msg model.StreamerMessage, filter *Filter, observe func(reason string), fn func(ref LogRef, line string) error) error {
	for _, shard := range msg.Shards {
		for _, reo := range shard.ReceiptExecutionOutcomes {
			outcome := reo.ExecutionOutcome.Outcome
			reason := filter.Reason(outcome)
			if observe != nil {
				observe(reason)
			}
			if reason != ReasonEligible {
				continue
			}

			for i, line := range outcome.Logs {
				ref := LogRef{
					BlockHeight: msg.Block.Header.Height,
					BlockHash:   msg.Block.Header.Hash,
					ShardID:     shard.ShardID,
					ReceiptID:   reo.ExecutionOutcome.ID,
					ExecutorID:  outcome.ExecutorID,
					LogIndex:    i,
				}
				if err := fn(ref, line); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// TypedEvent attaches the location of ref to a decoded event.
func TypedEvent(ref LogRef, event model.Event) model.TypedEvent {
	return model.TypedEvent{
		BlockHeight: ref.BlockHeight,
		BlockHash:   ref.BlockHash,
		ShardID:     ref.ShardID,
		ReceiptID:   ref.ReceiptID,
		ContractID:  ref.ExecutorID,
		LogIndex:    ref.LogIndex,
		Kind:        event.Kind(),
		Event:       event,
	}
}

// DecodeErrorRecord builds the persisted record of a failed log line.
func DecodeErrorRecord(ref LogRef, tag, kind string, err error) model.DecodeError {
	return model.DecodeError{
		BlockHeight: ref.BlockHeight,
		ShardID:     ref.ShardID,
		ReceiptID:   ref.ReceiptID,
		ExecutorID:  ref.ExecutorID,
		LogIndex:    ref.LogIndex,
		Tag:         tag,
		Kind:        kind,
		Error:       err.Error(),
	}
}
