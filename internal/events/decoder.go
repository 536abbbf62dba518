package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"fluxCapacitor/internal/model"
)

// EventPrefix marks a log line carrying a NEP-297 event.
const EventPrefix = "EVENT_JSON:"

// ErrorKind classifies a decode failure.
type ErrorKind string

const (
	ParseError ErrorKind = "parse_error"
	FieldError ErrorKind = "field_error"
)

// DecodeError is returned for a log line that was not turned into events.
// It only concerns that line; callers continue with the next one.
type DecodeError struct {
	Kind     ErrorKind
	Tag      string
	Contract string
	Field    string
	Err      error
}

func (e *DecodeError) Error() string {
	switch {
	case e.Field != "":
		return fmt.Sprintf("%s: %s event from %s: field %s: %v", e.Kind, e.Tag, e.Contract, e.Field, e.Err)
	case e.Tag != "":
		return fmt.Sprintf("%s: %s event from %s: %v", e.Kind, e.Tag, e.Contract, e.Err)
	default:
		return fmt.Sprintf("%s: log from %s: %v", e.Kind, e.Contract, e.Err)
	}
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Result is the outcome of decoding one log line. Matched is false when the
// line has no event tag or the tag is not one the decoder knows.
type Result struct {
	Tag     string
	Matched bool
	Events  []model.Event
}

type decodeFunc func(contractID string, payload map[string]interface{}) ([]model.Event, error)

// Decoder maps tagged event payloads to domain events.
type Decoder struct {
	decoders map[string]decodeFunc
}

// NewDecoder builds a decoder for the marketplace and NFT event tags.
func NewDecoder() *Decoder {
	return &Decoder{
		decoders: map[string]decodeFunc{
			"nft_mint":           decodeMint,
			"nft_transfer":       decodeTransfer,
			"add_market_data":    decodeListMarket,
			"update_market_data": decodeUpdateMarket,
			"delete_market_data": decodeDelistMarket,
			"add_bid":            decodeAddBid,
			"add_offer":          decodeAddOffer,
			"delete_offer":       decodeRemoveOffer,
			"resolve_purchase":   decodeResolvePurchase,
		},
	}
}

// CanDecode checks if the tag is supported.
func (d *Decoder) CanDecode(tag string) bool {
	_, ok := d.decoders[tag]
	return ok
}

// Tags lists the supported tags in sorted order.
func (d *Decoder) Tags() []string {
	tags := make([]string, 0, len(d.decoders))
	for tag := range d.decoders {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Decode converts one raw log line emitted by contractID into domain events.
func (d *Decoder) Decode(contractID, rawLog string) (Result, error) {
	body, _ := strings.CutPrefix(rawLog, EventPrefix)

	parsed, err := parseJSON(body)
	if err != nil {
		return Result{}, &DecodeError{Kind: ParseError, Contract: contractID, Err: err}
	}

	payload, ok := parsed.(map[string]interface{})
	if !ok {
		return Result{}, nil
	}
	tag, ok := payload["event"].(string)
	if !ok {
		return Result{}, nil
	}

	decode, ok := d.decoders[tag]
	if !ok {
		return Result{Tag: tag}, nil
	}

	events, err := decode(contractID, payload)
	if err != nil {
		decodeErr := &DecodeError{Kind: FieldError, Tag: tag, Contract: contractID, Err: err}
		var fieldErr *fieldError
		if errors.As(err, &fieldErr) {
			decodeErr.Field = fieldErr.field
			decodeErr.Err = fieldErr.err
		}
		return Result{Tag: tag, Matched: true}, decodeErr
	}

	return Result{Tag: tag, Matched: true, Events: events}, nil
}

func parseJSON(body string) (interface{}, error) {
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()

	var parsed interface{}
	if err := dec.Decode(&parsed); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return parsed, nil
}
