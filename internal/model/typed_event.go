package model

// TypedEvent is a decoded event together with where it was found.
type TypedEvent struct {
	BlockHeight uint64    `json:"block_height"`
	BlockHash   string    `json:"block_hash"`
	ShardID     uint64    `json:"shard_id"`
	ReceiptID   string    `json:"receipt_id"`
	ContractID  string    `json:"contract_id"`
	LogIndex    int       `json:"log_index"`
	Kind        EventKind `json:"kind"`
	Event       Event     `json:"event"`
}
