package control

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/vietddude/walletscore/internal/core/config"
	"github.com/vietddude/walletscore/internal/core/domain"
	redisclient "github.com/vietddude/walletscore/internal/infra/redis"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to find free port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func testConfig(t *testing.T) Config {
	cfg := ConfigFromApp(config.Default())
	cfg.Port = freePort(t)
	cfg.Queue.BlockTimeout = 50 * time.Millisecond
	cfg.Queue.ConnectDelay = 10 * time.Millisecond
	cfg.Queue.ConnectAttempts = 2
	return cfg
}

func TestScorer_Lifecycle(t *testing.T) {
	cfg := testConfig(t)
	cfg.GRPCPort = freePort(t)
	cfg.Retention = time.Hour

	s, err := NewScorer(cfg)
	if err != nil {
		t.Fatalf("NewScorer failed: %v", err)
	}
	if s.grpcServer == nil || s.pruner == nil {
		t.Fatal("Expected gRPC server and pruner to be configured")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()
	if err := s.Stop(shutdownCtx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestScorer_ConsumesFromRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Redis = redisclient.Config{URL: "redis://" + mr.Addr()}

	s, err := NewScorer(cfg)
	if err != nil {
		t.Fatalf("NewScorer failed: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	}()

	client, err := redisclient.NewClient(cfg.Redis)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer client.Close()

	payload := `{"wallet_address":"0xabc","transactions":[{"type":"swap","amount_usd":100,"timestamp":1703980800}]}`
	if _, err := client.Publish(context.Background(), cfg.Queue.InputStream, []byte(payload)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		msgs, err := client.Range(context.Background(), cfg.Queue.SuccessStream)
		if err == nil && len(msgs) == 1 {
			var result domain.WalletScoreResult
			if err := json.Unmarshal(msgs[0].Payload, &result); err != nil {
				t.Fatalf("Failed to decode result: %v", err)
			}
			if result.WalletAddress != "0xabc" || result.TransactionCount() != 1 {
				t.Errorf("Unexpected result: %+v", result)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for scored result")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// The result is archived right after it is published.
	for {
		history, err := s.reporter.History(context.Background(), "0xabc", 10)
		if err == nil && len(history) == 1 {
			if history[0].Transport != domain.TransportQueue {
				t.Errorf("Expected queue transport, got %s", history[0].Transport)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for archived result (%v)", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestScorer_RedisUnavailableKeepsServing(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis failed: %v", err)
	}
	cfg := testConfig(t)
	cfg.Redis = redisclient.Config{URL: "redis://" + mr.Addr()}
	mr.Close()

	s, err := NewScorer(cfg)
	if err != nil {
		t.Fatalf("NewScorer failed: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Give the connect retries time to run out.
	time.Sleep(200 * time.Millisecond)

	s.mu.Lock()
	connected := s.redisClient != nil
	s.mu.Unlock()
	if connected {
		t.Error("Expected no redis client after failed retries")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil && !strings.Contains(err.Error(), "workers") {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestDefaultConsumerName(t *testing.T) {
	a, b := defaultConsumerName(), defaultConsumerName()
	if a == "" || a != b {
		t.Errorf("Expected a stable consumer name, got %q and %q", a, b)
	}
	if host, err := os.Hostname(); err == nil && host != "" && a != host {
		t.Errorf("Expected hostname %q, got %q", host, a)
	}
}
