package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/vietddude/walletscore/internal/core/domain"
	redisclient "github.com/vietddude/walletscore/internal/infra/redis"
	"github.com/vietddude/walletscore/internal/scoring/pipeline"
	"github.com/vietddude/walletscore/internal/service"
)

const walletPayload = `{
	"wallet_address": "0xabc",
	"transactions": [
		{"type": "swap", "amount_usd": 1000, "timestamp": 1703980800, "pool": "usdc-weth", "token_in": "USDC", "token_out": "WETH"},
		{"type": "deposit", "amount_usd": 500, "timestamp": 1703980900, "pool": "usdc-weth"},
		{"type": "withdraw", "amount_usd": 250, "timestamp": 1703984500, "pool": "usdc-weth"}
	]
}`

func testConfig() Config {
	return Config{
		InputStream:   "wallet-transactions",
		SuccessStream: "wallet-scores-success",
		FailureStream: "wallet-scores-failure",
		Group:         "ai-scoring-service",
		Consumer:      "test-consumer",
		BlockTimeout:  50 * time.Millisecond,
		BatchSize:     10,
	}
}

type harness struct {
	client   *redisclient.Client
	mr       *miniredis.Miniredis
	consumer *Consumer
	state    *service.State
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redisclient.NewClient(redisclient.Config{URL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	state := service.NewState()
	c := New(testConfig(), client, pipeline.NewEngine(), service.NewReporter(state, nil, nil))
	return &harness{client: client, mr: mr, consumer: c, state: state}
}

// run starts the consumer and stops it when the test ends.
func (h *harness) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.consumer.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run returned error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("consumer did not stop")
		}
	})
}

func (h *harness) waitFor(t *testing.T, stream string, n int64) []redisclient.Message {
	t.Helper()
	ctx := context.Background()
	deadline := time.Now().Add(3 * time.Second)
	for {
		got, err := h.client.Len(ctx, stream)
		if err == nil && got >= n {
			msgs, err := h.client.Range(ctx, stream)
			if err != nil {
				t.Fatalf("Range failed: %v", err)
			}
			return msgs
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d entries on %s", n, stream)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestConsumer_ScoresAndPublishesSuccess(t *testing.T) {
	h := newHarness(t)
	h.run(t)

	if _, err := h.client.Publish(context.Background(), "wallet-transactions", []byte(walletPayload)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	msgs := h.waitFor(t, "wallet-scores-success", 1)

	var result domain.WalletScoreResult
	if err := json.Unmarshal(msgs[0].Payload, &result); err != nil {
		t.Fatalf("Failed to decode result: %v", err)
	}
	if result.WalletAddress != "0xabc" || result.Score() != 138.01 || result.Error != nil {
		t.Errorf("Unexpected result: %+v", result)
	}
	if result.Timestamp == 0 {
		t.Error("Expected timestamp to be stamped")
	}

	deadline := time.Now().Add(2 * time.Second)
	for h.state.Processed() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("Expected processed counter 1, got %d", h.state.Processed())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestConsumer_UndecodablePayloadGoesToFailure(t *testing.T) {
	h := newHarness(t)
	h.run(t)

	if _, err := h.client.Publish(context.Background(), "wallet-transactions", []byte("not json")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	msgs := h.waitFor(t, "wallet-scores-failure", 1)

	var failure map[string]any
	if err := json.Unmarshal(msgs[0].Payload, &failure); err != nil {
		t.Fatalf("Failed to decode failure: %v", err)
	}
	if failure["error"] == "" || failure["error"] == nil {
		t.Errorf("Expected error message, got %v", failure)
	}
	if v, ok := failure["wallet"]; !ok || v != nil {
		t.Errorf("Expected null wallet, got %v", v)
	}
	if h.state.Processed() != 0 {
		t.Errorf("Failure must not be counted as processed")
	}
}

func TestConsumer_WrongShapeKeepsOriginalPayload(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if err := h.client.EnsureGroup(ctx, "wallet-transactions", "ai-scoring-service"); err != nil {
		t.Fatalf("EnsureGroup failed: %v", err)
	}

	h.consumer.Handle(ctx, redisclient.Message{ID: "1-0", Payload: []byte(`[1,2]`), HasPayload: true})

	msgs := h.waitFor(t, "wallet-scores-failure", 1)
	var failure FailureMessage
	if err := json.Unmarshal(msgs[0].Payload, &failure); err != nil {
		t.Fatalf("Failed to decode failure: %v", err)
	}
	if string(failure.Wallet) != `[1,2]` {
		t.Errorf("Expected original payload, got %s", failure.Wallet)
	}
}

func TestConsumer_EngineErrorGoesToSuccess(t *testing.T) {
	h := newHarness(t)
	h.run(t)

	payload := `{"wallet_address":"0xabc","transactions":[{"type":"swap"},null]}`
	if _, err := h.client.Publish(context.Background(), "wallet-transactions", []byte(payload)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	msgs := h.waitFor(t, "wallet-scores-success", 1)
	var result domain.WalletScoreResult
	if err := json.Unmarshal(msgs[0].Payload, &result); err != nil {
		t.Fatalf("Failed to decode result: %v", err)
	}
	if result.Error == nil || result.ZScore != "0.0" {
		t.Errorf("Expected fallback result, got %+v", result)
	}
}

func TestConsumer_MissingAddressIsScoredAsUnknown(t *testing.T) {
	h := newHarness(t)
	h.run(t)

	if _, err := h.client.Publish(context.Background(), "wallet-transactions", []byte(`{"data":[]}`)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	msgs := h.waitFor(t, "wallet-scores-success", 1)
	var result domain.WalletScoreResult
	if err := json.Unmarshal(msgs[0].Payload, &result); err != nil {
		t.Fatalf("Failed to decode result: %v", err)
	}
	if result.WalletAddress != "unknown" || result.ZScore != "0.0" {
		t.Errorf("Unexpected result: %+v", result)
	}
}

func TestConsumer_AcksHandledMessages(t *testing.T) {
	h := newHarness(t)
	h.run(t)
	ctx := context.Background()

	for _, p := range []string{walletPayload, "garbage"} {
		if _, err := h.client.Publish(ctx, "wallet-transactions", []byte(p)); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}
	h.waitFor(t, "wallet-scores-success", 1)
	h.waitFor(t, "wallet-scores-failure", 1)

	deadline := time.Now().Add(2 * time.Second)
	for {
		pending, err := h.client.Pending(ctx, "wallet-transactions", "ai-scoring-service")
		if err == nil && pending == 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("Expected no pending entries, got %d (%v)", pending, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// flakyStream fails publishes to one stream.
type flakyStream struct {
	*redisclient.Client
	failOn string
}

func (f *flakyStream) Publish(ctx context.Context, stream string, payload []byte) (string, error) {
	if stream == f.failOn {
		return "", errors.New("broker unavailable")
	}
	return f.Client.Publish(ctx, stream, payload)
}

func TestConsumer_PublishErrorIsNotFatal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	stream := &flakyStream{Client: h.client, failOn: "wallet-scores-success"}
	c := New(testConfig(), stream, pipeline.NewEngine(), service.NewReporter(h.state, nil, nil))

	if err := stream.EnsureGroup(ctx, "wallet-transactions", "ai-scoring-service"); err != nil {
		t.Fatalf("EnsureGroup failed: %v", err)
	}
	c.Handle(ctx, redisclient.Message{ID: "1-0", Payload: []byte(walletPayload), HasPayload: true})

	if h.state.Processed() != 1 {
		t.Errorf("Expected processed counter 1, got %d", h.state.Processed())
	}
	n, _ := h.client.Len(ctx, "wallet-scores-success")
	if n != 0 {
		t.Errorf("Expected nothing published, got %d", n)
	}
}

func TestConsumer_NoPayloadField(t *testing.T) {
	h := newHarness(t)
	h.run(t)

	if _, err := h.mr.XAdd("wallet-transactions", "*", []string{"other", "x"}); err != nil {
		t.Fatalf("XAdd failed: %v", err)
	}

	msgs := h.waitFor(t, "wallet-scores-failure", 1)
	var failure FailureMessage
	if err := json.Unmarshal(msgs[0].Payload, &failure); err != nil {
		t.Fatalf("Failed to decode failure: %v", err)
	}
	if failure.Error != errNoPayload.Error() || string(failure.Wallet) != "null" {
		t.Errorf("Unexpected failure: %+v", failure)
	}
}

func TestConsumer_AcksAfterCancellation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	cfg := testConfig()

	if err := h.client.EnsureGroup(ctx, cfg.InputStream, cfg.Group); err != nil {
		t.Fatalf("EnsureGroup failed: %v", err)
	}
	if _, err := h.client.Publish(ctx, cfg.InputStream, []byte(walletPayload)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	msgs, err := h.client.ReadGroup(ctx, cfg.InputStream, cfg.Group, cfg.Consumer, 10, 50*time.Millisecond)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("Expected one delivered entry, got %d (%v)", len(msgs), err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	h.consumer.Handle(cancelled, msgs[0])

	pending, err := h.client.Pending(ctx, cfg.InputStream, cfg.Group)
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if pending != 0 {
		t.Errorf("Expected entry acknowledged after cancellation, %d still pending", pending)
	}
}
