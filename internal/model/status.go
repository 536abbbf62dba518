package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// StatusKind classifies an execution status.
type StatusKind int

const (
	StatusUnknown StatusKind = iota
	StatusFailure
	StatusSuccessValue
	StatusSuccessReceiptID
)

func (k StatusKind) String() string {
	switch k {
	case StatusFailure:
		return "Failure"
	case StatusSuccessValue:
		return "SuccessValue"
	case StatusSuccessReceiptID:
		return "SuccessReceiptId"
	default:
		return "Unknown"
	}
}

// ExecutionStatus is the externally tagged status of an execution outcome:
// {"SuccessValue": "..."}, {"SuccessReceiptId": "..."}, {"Failure": {...}} or "Unknown".
type ExecutionStatus struct {
	Kind StatusKind
	// Value holds the success value, the receipt id, or the raw failure object.
	Value json.RawMessage
}

// IsSuccess reports whether the status belongs to the success family.
func (s ExecutionStatus) IsSuccess() bool {
	return s.Kind == StatusSuccessValue || s.Kind == StatusSuccessReceiptID
}

func (s ExecutionStatus) MarshalJSON() ([]byte, error) {
	if s.Kind == StatusUnknown {
		return json.Marshal("Unknown")
	}
	value := s.Value
	if len(value) == 0 {
		value = json.RawMessage("null")
	}
	return json.Marshal(map[string]json.RawMessage{s.Kind.String(): value})
}

func (s *ExecutionStatus) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ExecutionStatus{Kind: StatusUnknown}
		return nil
	}

	if data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*s = ExecutionStatus{Kind: kindFromName(name)}
		return nil
	}

	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("execution status: %w", err)
	}
	// An object naming more than one variant is ambiguous. It is kept as
	// Unknown so the rest of the block still parses.
	if len(tagged) != 1 {
		*s = ExecutionStatus{Kind: StatusUnknown, Value: append(json.RawMessage(nil), data...)}
		return nil
	}
	for name, value := range tagged {
		*s = ExecutionStatus{Kind: kindFromName(name), Value: value}
	}
	return nil
}

func kindFromName(name string) StatusKind {
	switch name {
	case "SuccessValue":
		return StatusSuccessValue
	case "SuccessReceiptId":
		return StatusSuccessReceiptID
	case "Failure":
		return StatusFailure
	default:
		return StatusUnknown
	}
}
