package sink

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"fluxCapacitor/internal/model"
)

type captured struct {
	method    string
	path      string
	signature string
	body      map[string]interface{}
}

type api struct {
	mu    sync.Mutex
	calls []captured
}

func (a *api) recorded() []captured {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]captured(nil), a.calls...)
}

func newAPI(t *testing.T, status int) (*httptest.Server, *api) {
	t.Helper()
	a := &api{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		var body map[string]interface{}
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		a.calls = append(a.calls, captured{
			method:    r.Method,
			path:      r.URL.Path,
			signature: r.Header.Get(SignatureHeader),
			body:      body,
		})
		w.WriteHeader(status)
		_, _ = w.Write([]byte("rejected by api"))
	}))
	t.Cleanup(srv.Close)
	return srv, a
}

func TestForwardRoutesEveryKind(t *testing.T) {
	events := []struct {
		event model.Event
		path  string
	}{
		{model.MintEvent{TokenIDs: []string{"1"}, ContractID: "nft.near", OwnerID: "alice"}, "/insert_tokens"},
		{model.TransferEvent{TokenIDs: []string{"1"}, ContractID: "nft.near"}, "/transfer_tokens"},
		{model.ListMarketEvent{TokenID: "1"}, "/list_token"},
		{model.UpdateMarketEvent{TokenID: "1"}, "/update_token"},
		{model.DelistMarketEvent{TokenID: "1"}, "/unlist_token"},
		{model.AddBidEvent{TokenID: "1"}, "/bid_token"},
		{model.AddOfferEvent{TokenID: "1"}, "/offer_token"},
		{model.RemoveOfferEvent{TokenID: "1"}, "/unoffer_token"},
		{model.ResolvePurchaseEvent{TokenID: "1"}, "/resolve_token"},
	}

	srv, calls := newAPI(t, http.StatusOK)
	s := NewHTTPSink(srv.URL+"/", time.Second, zaptest.NewLogger(t))

	for _, tc := range events {
		require.NoError(t, s.Forward(context.Background(), tc.event, "market.near", "secret"))
	}

	got := calls.recorded()
	require.Len(t, got, len(events))
	for i, tc := range events {
		got := got[i]
		require.Equal(t, http.MethodPost, got.method)
		require.Equal(t, tc.path, got.path)
		require.Equal(t, "secret", got.signature)
	}
}

func TestForwardBody(t *testing.T) {
	srv, calls := newAPI(t, http.StatusCreated)
	s := NewHTTPSink(srv.URL, time.Second, nil)

	event := model.AddBidEvent{
		TokenID:       "42",
		NFTContractID: "nft.near",
		BidderID:      "bob.near",
		FTTokenID:     "near",
		Price:         "100",
		ContractID:    "market.near",
	}
	require.NoError(t, s.Forward(context.Background(), event, "market.near", "secret"))

	got := calls.recorded()
	require.Len(t, got, 1)
	require.Equal(t, map[string]interface{}{
		"token_id":        "42",
		"nft_contract_id": "nft.near",
		"bidder_id":       "bob.near",
		"ft_token_id":     "near",
		"price":           "100",
	}, got[0].body)
}

func TestForwardNon2xx(t *testing.T) {
	srv, _ := newAPI(t, http.StatusBadGateway)
	s := NewHTTPSink(srv.URL, time.Second, nil)

	err := s.Forward(context.Background(), model.MintEvent{TokenIDs: []string{"1"}}, "nft.near", "secret")

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	require.Equal(t, "/insert_tokens", statusErr.Path)
	require.Equal(t, "rejected by api", statusErr.Body)
}

func TestForwardTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s := NewHTTPSink(url, time.Second, nil)
	err := s.Forward(context.Background(), model.MintEvent{}, "nft.near", "secret")
	require.Error(t, err)

	var statusErr *StatusError
	require.False(t, errors.As(err, &statusErr))
}

func TestForwardCancelledContext(t *testing.T) {
	srv, calls := newAPI(t, http.StatusOK)
	s := NewHTTPSink(srv.URL, time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Forward(ctx, model.MintEvent{}, "nft.near", "secret")
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, calls.recorded())
}
