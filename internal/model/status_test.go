package model

import (
	"encoding/json"
	"testing"
)

func TestExecutionStatusUnmarshal(t *testing.T) {
	cases := []struct {
		raw     string
		kind    StatusKind
		success bool
	}{
		{`{"SuccessValue":""}`, StatusSuccessValue, true},
		{`{"SuccessReceiptId":"8Bq5…"}`, StatusSuccessReceiptID, true},
		{`{"Failure":{"ActionError":{"index":0}}}`, StatusFailure, false},
		{`"Unknown"`, StatusUnknown, false},
		{`null`, StatusUnknown, false},
	}

	for _, tc := range cases {
		var status ExecutionStatus
		if err := json.Unmarshal([]byte(tc.raw), &status); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.raw, err)
		}
		if status.Kind != tc.kind {
			t.Fatalf("kind mismatch for %s: %s != %s", tc.raw, status.Kind, tc.kind)
		}
		if status.IsSuccess() != tc.success {
			t.Fatalf("success mismatch for %s", tc.raw)
		}
	}
}

func TestExecutionStatusMultipleVariantsIsUnknown(t *testing.T) {
	for _, raw := range []string{`{"SuccessValue":"","Failure":{}}`, `{}`} {
		var status ExecutionStatus
		if err := json.Unmarshal([]byte(raw), &status); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if status.Kind != StatusUnknown || status.IsSuccess() {
			t.Fatalf("expected unknown status for %s, got %v", raw, status.Kind)
		}
	}
}

func TestParseStreamerMessageKeepsOutcomesBesideAmbiguousStatus(t *testing.T) {
	raw := `{"block":{"header":{"height":5,"hash":"H5"}},"shards":[{"shard_id":0,"receipt_execution_outcomes":[
		{"execution_outcome":{"id":"R1","outcome":{"executor_id":"market.near","logs":[],"status":{"SuccessValue":"","Failure":{}}}}},
		{"execution_outcome":{"id":"R2","outcome":{"executor_id":"market.near","logs":[],"status":{"SuccessReceiptId":"X"}}}}
	]}]}`

	msg, err := ParseStreamerMessage([]byte(raw))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	outcomes := msg.Shards[0].ReceiptExecutionOutcomes
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].ExecutionOutcome.Outcome.Status.Kind != StatusUnknown {
		t.Fatalf("expected ambiguous status to be unknown")
	}
	if !outcomes[1].ExecutionOutcome.Outcome.Status.IsSuccess() {
		t.Fatalf("expected second outcome to succeed")
	}
}

func TestParseStreamerMessage(t *testing.T) {
	raw := `{
		"block": {"author": "node0", "header": {"height": 67779380, "hash": "H1"}},
		"shards": [{
			"shard_id": 2,
			"receipt_execution_outcomes": [{
				"execution_outcome": {
					"id": "R1",
					"block_hash": "H1",
					"outcome": {
						"executor_id": "market.near",
						"logs": ["EVENT_JSON:{}"],
						"receipt_ids": [],
						"gas_burnt": 2428000000000,
						"tokens_burnt": "242800000000000000000",
						"status": {"SuccessValue": ""}
					}
				}
			}]
		}]
	}`

	msg, err := ParseStreamerMessage([]byte(raw))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if msg.Block.Header.Height != 67779380 {
		t.Fatalf("height mismatch: %d", msg.Block.Header.Height)
	}
	if len(msg.Shards) != 1 || msg.Shards[0].ShardID != 2 {
		t.Fatalf("shards mismatch: %+v", msg.Shards)
	}
	outcome := msg.Shards[0].ReceiptExecutionOutcomes[0].ExecutionOutcome
	if outcome.ID != "R1" || outcome.Outcome.ExecutorID != "market.near" {
		t.Fatalf("outcome mismatch: %+v", outcome)
	}
	if !outcome.Outcome.Status.IsSuccess() {
		t.Fatalf("expected success status")
	}
}
