package model

// DecodeError records a decode failure for a log line.
type DecodeError struct {
	BlockHeight uint64 `json:"block_height"`
	ShardID     uint64 `json:"shard_id"`
	ReceiptID   string `json:"receipt_id"`
	ExecutorID  string `json:"executor_id"`
	LogIndex    int    `json:"log_index"`
	Tag         string `json:"tag,omitempty"`
	Kind        string `json:"kind"`
	Error       string `json:"error"`
}
