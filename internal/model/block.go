package model

import (
	"encoding/json"
)

// StreamerMessage is one block as delivered by the chain-sync streamer.
type StreamerMessage struct {
	Block  Block   `json:"block"`
	Shards []Shard `json:"shards"`
}

// Block carries the header fields the indexer logs and records.
type Block struct {
	Author string      `json:"author,omitempty"`
	Header BlockHeader `json:"header"`
}

// BlockHeader is the subset of the NEAR block header view in use.
type BlockHeader struct {
	Height    uint64 `json:"height"`
	Hash      string `json:"hash"`
	PrevHash  string `json:"prev_hash,omitempty"`
	Timestamp uint64 `json:"timestamp,omitempty"`
}

// Shard groups the receipt execution outcomes of one chunk.
type Shard struct {
	ShardID                  uint64                    `json:"shard_id"`
	ReceiptExecutionOutcomes []ReceiptExecutionOutcome `json:"receipt_execution_outcomes"`
}

// ReceiptExecutionOutcome pairs an executed receipt with its outcome.
type ReceiptExecutionOutcome struct {
	ExecutionOutcome ExecutionOutcomeWithID `json:"execution_outcome"`
	Receipt          json.RawMessage        `json:"receipt,omitempty"`
}

// ExecutionOutcomeWithID is an outcome plus the receipt id it belongs to.
type ExecutionOutcomeWithID struct {
	ID        string           `json:"id"`
	BlockHash string           `json:"block_hash"`
	Outcome   ExecutionOutcome `json:"outcome"`
}

// ExecutionOutcome is the recorded effect of executing one receipt.
type ExecutionOutcome struct {
	ExecutorID  string          `json:"executor_id"`
	Logs        []string        `json:"logs"`
	ReceiptIDs  []string        `json:"receipt_ids"`
	GasBurnt    uint64          `json:"gas_burnt"`
	TokensBurnt string          `json:"tokens_burnt"`
	Status      ExecutionStatus `json:"status"`
}

// ParseStreamerMessage decodes a streamer message from its JSON encoding.
func ParseStreamerMessage(data []byte) (StreamerMessage, error) {
	var msg StreamerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return StreamerMessage{}, err
	}
	return msg, nil
}
