// Package sink forwards decoded marketplace events to the public API.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"fluxCapacitor/internal/model"
)

// SignatureHeader carries the shared API token on every request.
const SignatureHeader = "Signature"

const maxErrorBody = 512

// Sink delivers one event. Implementations must not retain event.
type Sink interface {
	Forward(ctx context.Context, event model.Event, contractID, authToken string) error
}

var paths = map[model.EventKind]string{
	model.KindMint:            "/insert_tokens",
	model.KindTransfer:        "/transfer_tokens",
	model.KindListMarket:      "/list_token",
	model.KindUpdateMarket:    "/update_token",
	model.KindDelistMarket:    "/unlist_token",
	model.KindAddBid:          "/bid_token",
	model.KindAddOffer:        "/offer_token",
	model.KindRemoveOffer:     "/unoffer_token",
	model.KindResolvePurchase: "/resolve_token",
}

// Path returns the API path an event kind is posted to.
func Path(kind model.EventKind) (string, bool) {
	p, ok := paths[kind]
	return p, ok
}

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("POST %s: status %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("POST %s: status %d: %s", e.Path, e.StatusCode, e.Body)
}

// HTTPSink posts events as JSON to baseURL joined with the per-kind path.
type HTTPSink struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPSink builds a sink. A zero timeout leaves requests bounded only by
// the caller's context.
func NewHTTPSink(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPSink{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Forward posts event once. Delivery failures are returned, never retried.
func (s *HTTPSink) Forward(ctx context.Context, event model.Event, contractID, authToken string) error {
	path, ok := Path(event.Kind())
	if !ok {
		return fmt.Errorf("no endpoint for event kind %q", event.Kind())
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Kind(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, authToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer closeBody(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	s.logger.Debug("event forwarded",
		zap.String("path", path),
		zap.String("contract_id", contractID),
		zap.Int("status", resp.StatusCode),
	)
	return nil
}

// closeBody drains the body so the connection can be reused.
func closeBody(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
