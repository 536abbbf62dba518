package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"fluxCapacitor/internal/events"
	"fluxCapacitor/internal/metrics"
	"fluxCapacitor/internal/model"
	"fluxCapacitor/internal/sink"
)

type staticAllowList map[string]bool

func (s staticAllowList) Contains(id string) bool { return s[id] }

type forwardCall struct {
	event    model.Event
	contract string
	token    string
}

type recordingSink struct {
	mu    sync.Mutex
	calls []forwardCall
	// failOn makes Forward fail for events of that kind.
	failOn model.EventKind
}

func (s *recordingSink) Forward(_ context.Context, event model.Event, contractID, authToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, forwardCall{event: event, contract: contractID, token: authToken})
	if event.Kind() == s.failOn {
		return errors.New("api unavailable")
	}
	return nil
}

func (s *recordingSink) recorded() []forwardCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]forwardCall(nil), s.calls...)
}

func success() model.ExecutionStatus {
	return model.ExecutionStatus{Kind: model.StatusSuccessValue, Value: json.RawMessage(`""`)}
}

func outcome(executor string, status model.ExecutionStatus, logs ...string) model.ReceiptExecutionOutcome {
	return model.ReceiptExecutionOutcome{
		ExecutionOutcome: model.ExecutionOutcomeWithID{
			ID: "receipt-" + executor,
			Outcome: model.ExecutionOutcome{
				ExecutorID: executor,
				Logs:       logs,
				Status:     status,
			},
		},
	}
}

func block(height uint64, outcomes ...model.ReceiptExecutionOutcome) model.StreamerMessage {
	return model.StreamerMessage{
		Block:  model.Block{Header: model.BlockHeader{Height: height, Hash: fmt.Sprintf("hash-%d", height)}},
		Shards: []model.Shard{{ShardID: 0, ReceiptExecutionOutcomes: outcomes}},
	}
}

func mintLog(tokenID string) string {
	return fmt.Sprintf(`EVENT_JSON:{"standard":"nep171","version":"1.0.0","event":"nft_mint","data":[{"owner_id":"alice.near","token_ids":[%q]}]}`, tokenID)
}

func runBlocks(t *testing.T, r *Runner, msgs ...model.StreamerMessage) {
	t.Helper()
	ch := make(chan model.StreamerMessage, len(msgs))
	for _, msg := range msgs {
		ch <- msg
	}
	close(ch)
	require.NoError(t, r.Run(context.Background(), ch))
}

func TestFilter(t *testing.T) {
	f := NewFilter(staticAllowList{"nft.near": true})

	cases := []struct {
		name     string
		outcome  model.ExecutionOutcome
		expected string
	}{
		{"allowed success value", model.ExecutionOutcome{ExecutorID: "nft.near", Status: success()}, ReasonEligible},
		{"allowed receipt id", model.ExecutionOutcome{ExecutorID: "nft.near", Status: model.ExecutionStatus{Kind: model.StatusSuccessReceiptID}}, ReasonEligible},
		{"allowed failure", model.ExecutionOutcome{ExecutorID: "nft.near", Status: model.ExecutionStatus{Kind: model.StatusFailure}}, ReasonStatus},
		{"allowed unknown", model.ExecutionOutcome{ExecutorID: "nft.near"}, ReasonStatus},
		{"not allowed", model.ExecutionOutcome{ExecutorID: "evil.near", Status: success()}, ReasonNotAllowed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, f.Reason(tc.outcome))
			require.Equal(t, tc.expected == ReasonEligible, f.Eligible(tc.outcome))
		})
	}
}

func TestRunSkipsUntrustedAndFailedOutcomes(t *testing.T) {
	s := &recordingSink{}
	r := NewRunner(RunConfig{AuthToken: "secret"}, staticAllowList{"nft.near": true}, nil, s, nil, zaptest.NewLogger(t))

	runBlocks(t, r, block(1,
		outcome("evil.near", success(), mintLog("1")),
		outcome("nft.near", model.ExecutionStatus{Kind: model.StatusFailure}, mintLog("2")),
	))

	require.Empty(t, s.recorded())
}

func TestRunPreservesOrder(t *testing.T) {
	s := &recordingSink{}
	r := NewRunner(RunConfig{AuthToken: "secret"}, staticAllowList{"nft.near": true, "other.near": true}, nil, s, nil, zaptest.NewLogger(t))

	var msgs []model.StreamerMessage
	var want []string
	n := 0
	for h := uint64(1); h <= 5; h++ {
		a, b, c := fmt.Sprint(n), fmt.Sprint(n+1), fmt.Sprint(n+2)
		n += 3
		msgs = append(msgs, block(h,
			outcome("nft.near", success(), mintLog(a), mintLog(b)),
			outcome("other.near", success(), mintLog(c)),
		))
		want = append(want, a, b, c)
	}
	runBlocks(t, r, msgs...)

	calls := s.recorded()
	require.Len(t, calls, len(want))
	for i, call := range calls {
		mint, ok := call.event.(model.MintEvent)
		require.True(t, ok)
		require.Equal(t, []string{want[i]}, mint.TokenIDs)
		require.Equal(t, "secret", call.token)
		require.Equal(t, call.contract, mint.ContractID)
	}
}

func shards(height uint64, groups ...[]model.ReceiptExecutionOutcome) model.StreamerMessage {
	msg := model.StreamerMessage{
		Block: model.Block{Header: model.BlockHeader{Height: height, Hash: fmt.Sprintf("hash-%d", height)}},
	}
	for i, outcomes := range groups {
		msg.Shards = append(msg.Shards, model.Shard{ShardID: uint64(i), ReceiptExecutionOutcomes: outcomes})
	}
	return msg
}

func TestRunOrdersAcrossShardsWithSkippedOutcomes(t *testing.T) {
	s := &recordingSink{}
	allow := staticAllowList{"nft.near": true, "market.near": true}
	r := NewRunner(RunConfig{}, allow, nil, s, nil, zaptest.NewLogger(t))

	failed := model.ExecutionStatus{Kind: model.StatusFailure, Value: json.RawMessage(`{}`)}
	runBlocks(t, r,
		shards(10,
			[]model.ReceiptExecutionOutcome{
				outcome("nft.near", success(), mintLog("1")),
				outcome("nft.near", failed, mintLog("x1")),
				outcome("evil.near", success(), mintLog("x2")),
			},
			[]model.ReceiptExecutionOutcome{
				outcome("market.near", success(), "garbage", mintLog("2"), mintLog("3")),
			},
		),
		shards(11,
			[]model.ReceiptExecutionOutcome{
				outcome("evil.near", success(), mintLog("x3")),
			},
			[]model.ReceiptExecutionOutcome{
				outcome("nft.near", model.ExecutionStatus{Kind: model.StatusSuccessReceiptID}, mintLog("4")),
				outcome("market.near", failed, mintLog("x4")),
			},
			[]model.ReceiptExecutionOutcome{
				outcome("market.near", success(), mintLog("5")),
			},
		),
	)

	var got []string
	var contracts []string
	for _, call := range s.recorded() {
		mint, ok := call.event.(model.MintEvent)
		require.True(t, ok)
		got = append(got, mint.TokenIDs...)
		contracts = append(contracts, call.contract)
	}
	require.Equal(t, []string{"1", "2", "3", "4", "5"}, got)
	require.Equal(t, []string{"nft.near", "market.near", "market.near", "nft.near", "market.near"}, contracts)
}

func TestRunContinuesAfterMalformedLine(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	s := &recordingSink{}
	r := NewRunner(RunConfig{}, staticAllowList{"nft.near": true}, events.NewDecoder(), s, m, zaptest.NewLogger(t))

	runBlocks(t, r, block(7, outcome("nft.near", success(),
		mintLog("1"),
		`EVENT_JSON:{"event":"nft_mint","data":[{`,
		`EVENT_JSON:{"event":"nft_mint","data":[{"token_ids":["x"]}]}`,
		"plain text log",
		mintLog("2"),
	)))

	calls := s.recorded()
	require.Len(t, calls, 2)
	require.Equal(t, []string{"1"}, calls[0].event.(model.MintEvent).TokenIDs)
	require.Equal(t, []string{"2"}, calls[1].event.(model.MintEvent).TokenIDs)

	count, err := testutil.GatherAndCount(reg, "capacitor_decode_errors_total")
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestRunContinuesAfterSinkFailure(t *testing.T) {
	s := &recordingSink{failOn: model.KindTransfer}
	r := NewRunner(RunConfig{}, staticAllowList{"nft.near": true}, nil, s, nil, zaptest.NewLogger(t))

	transfer := `EVENT_JSON:{"event":"nft_transfer","data":[{"old_owner_id":"a","new_owner_id":"b","token_ids":["9"]}]}`
	runBlocks(t, r,
		block(1, outcome("nft.near", success(), transfer, mintLog("1"))),
		block(2, outcome("nft.near", success(), mintLog("2"))),
	)

	calls := s.recorded()
	require.Len(t, calls, 3)
	require.Equal(t, model.KindTransfer, calls[0].event.Kind())
	require.Equal(t, model.KindMint, calls[1].event.Kind())
	require.Equal(t, model.KindMint, calls[2].event.Kind())
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(RunConfig{}, staticAllowList{}, nil, &recordingSink{}, nil, nil)
	err := r.Run(ctx, make(chan model.StreamerMessage))
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunRequiresSink(t *testing.T) {
	r := NewRunner(RunConfig{}, staticAllowList{}, nil, nil, nil, nil)
	require.Error(t, r.Run(context.Background(), make(chan model.StreamerMessage)))
}

func TestRunForwardsBidOverHTTP(t *testing.T) {
	type request struct {
		path      string
		signature string
		body      map[string]interface{}
	}
	var (
		mu       sync.Mutex
		received []request
	)
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		mu.Lock()
		received = append(received, request{path: r.URL.Path, signature: r.Header.Get(sink.SignatureHeader), body: body})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer api.Close()

	r := NewRunner(
		RunConfig{AuthToken: "secret"},
		staticAllowList{"market.near": true},
		nil,
		sink.NewHTTPSink(api.URL, 5*time.Second, zaptest.NewLogger(t)),
		nil,
		zaptest.NewLogger(t),
	)

	bid := `EVENT_JSON:{"event":"add_bid","params":{"token_id":"42","nft_contract_id":"nft.near","bidder_id":"bob.near","ft_token_id":"near","amount":"100"}}`
	runBlocks(t, r, block(100, outcome("market.near", model.ExecutionStatus{Kind: model.StatusSuccessReceiptID}, bid)))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	require.Equal(t, "/bid_token", received[0].path)
	require.Equal(t, "secret", received[0].signature)
	require.Equal(t, map[string]interface{}{
		"token_id":        "42",
		"nft_contract_id": "nft.near",
		"bidder_id":       "bob.near",
		"ft_token_id":     "near",
		"price":           "100",
	}, received[0].body)
}

func TestWalkAndRecords(t *testing.T) {
	f := NewFilter(staticAllowList{"nft.near": true})
	msg := block(3,
		outcome("nft.near", success(), "a", "b"),
		outcome("evil.near", success(), "c"),
	)

	var reasons []string
	var refs []LogRef
	err := Walk(msg, f, func(reason string) { reasons = append(reasons, reason) }, func(ref LogRef, line string) error {
		refs = append(refs, ref)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{ReasonEligible, ReasonNotAllowed}, reasons)
	require.Len(t, refs, 2)
	require.Equal(t, 1, refs[1].LogIndex)
	require.Equal(t, "receipt-nft.near", refs[0].ReceiptID)

	typed := TypedEvent(refs[0], model.MintEvent{TokenIDs: []string{"1"}})
	require.Equal(t, uint64(3), typed.BlockHeight)
	require.Equal(t, "hash-3", typed.BlockHash)
	require.Equal(t, model.KindMint, typed.Kind)
	require.Equal(t, "nft.near", typed.ContractID)

	rec := DecodeErrorRecord(refs[1], "nft_mint", "field_error", errors.New("boom"))
	require.Equal(t, "boom", rec.Error)
	require.Equal(t, 1, rec.LogIndex)

	stop := errors.New("stop")
	err = Walk(msg, f, nil, func(LogRef, string) error { return stop })
	require.ErrorIs(t, err, stop)
}
