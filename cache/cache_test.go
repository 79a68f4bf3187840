package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/kdimentionaltree/sol-trace-go/trace"
	"github.com/redis/go-redis/v9"
)

func setupTestClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

var testLines = []string{
	"Program ComputeBudget111111111111111111111111111111 invoke [1]",
	"Program ComputeBudget111111111111111111111111111111 success",
	"Program Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS invoke [1]",
	"Program log: Instruction: Deposit",
	"Program data: AQID",
	"Program log: Error: vault is frozen",
	"Program Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS failed: custom program error: 0x1771",
}

func TestTraceCache_RoundTrip(t *testing.T) {
	client, _ := setupTestClient(t)
	m := NewManager(client)
	ctx := context.Background()

	want, err := trace.ProcessTransaction("sig1", testLines, 0)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if err := m.Traces.Set(ctx, "sig1", want, time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	got, err := m.Traces.Get(ctx, "sig1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
	if got.ErrorCode == nil || got.ErrorCode.Value != 0x1771 {
		t.Errorf("expected error code 0x1771, got %v", got.ErrorCode)
	}
	if cat := got.RootCalls[1].Messages[0].Category; cat != trace.CategoryStart {
		t.Errorf("expected category %s, got %s", trace.CategoryStart, cat)
	}
	if msg := got.RootCalls[1].Messages[1]; msg.Category != trace.CategoryMessage || msg.Content != "Instruction: Deposit" {
		t.Errorf("expected deposit message, got %s %q", msg.Category, msg.Content)
	}
}

func TestCache_NotFound(t *testing.T) {
	client, _ := setupTestClient(t)
	m := NewManager(client)

	_, err := m.Traces.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	_, err = m.Traces.GetEx(context.Background(), "missing", time.Minute)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound from GetEx, got %v", err)
	}
}

func TestCache_GetExRefreshesTTL(t *testing.T) {
	client, mr := setupTestClient(t)
	c := New(Options[[]string]{
		Client:  client,
		Encoder: MsgpackEncoder[[]string](),
		Decoder: MsgpackDecoder[[]string](),
		Prefix:  "test",
	})
	ctx := context.Background()

	if err := c.Set(ctx, "a", []string{"x"}, 10*time.Second); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	mr.FastForward(8 * time.Second)
	if _, err := c.GetEx(ctx, "a", 10*time.Second); err != nil {
		t.Fatalf("getex failed: %v", err)
	}
	mr.FastForward(8 * time.Second)
	if _, err := c.Get(ctx, "a"); err != nil {
		t.Errorf("expected key to survive after GetEx, got %v", err)
	}
	mr.FastForward(3 * time.Second)
	if _, err := c.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected key to expire, got %v", err)
	}
}

func TestCache_DecodeFailed(t *testing.T) {
	client, mr := setupTestClient(t)
	m := NewManager(client)

	if err := mr.Set("trace:bad", "not msgpack"); err != nil {
		t.Fatalf("failed to seed key: %v", err)
	}
	_, err := m.Traces.Get(context.Background(), "bad")
	if !errors.Is(err, ErrDecodeFailed) {
		t.Errorf("expected ErrDecodeFailed, got %v", err)
	}
}

func TestCache_MGetExInvalidate(t *testing.T) {
	client, _ := setupTestClient(t)
	c := New(Options[[]string]{
		Client:  client,
		Encoder: MsgpackEncoder[[]string](),
		Decoder: MsgpackDecoder[[]string](),
		Prefix:  "test",
	})
	ctx := context.Background()

	items := map[string][]string{
		"a": {"1"},
		"b": {"2", "3"},
	}
	for k, v := range items {
		if err := c.Set(ctx, k, v, time.Minute); err != nil {
			t.Fatalf("set failed: %v", err)
		}
	}
	got, err := c.MGetEx(ctx, time.Minute, "a", "b", "c")
	if err != nil {
		t.Fatalf("mgetex failed: %v", err)
	}
	if diff := cmp.Diff(items, got); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}

	if err := c.Invalidate(ctx, time.Minute, "a", "b"); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}
	got, err = c.MGetEx(ctx, time.Minute, "a", "b")
	if err != nil {
		t.Fatalf("mgetex failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no values after invalidate, got %v", got)
	}
}

func TestCache_SetIfVersion(t *testing.T) {
	client, mr := setupTestClient(t)
	c := New(Options[[]string]{
		Client:  client,
		Encoder: MsgpackEncoder[[]string](),
		Decoder: MsgpackDecoder[[]string](),
		Prefix:  "test",
	})
	ctx := context.Background()

	versions, err := c.Versions(ctx, "a", "b")
	if err != nil {
		t.Fatalf("versions failed: %v", err)
	}
	if diff := cmp.Diff(map[string]int64{"a": 0, "b": 0}, versions); diff != "" {
		t.Errorf("initial versions (-want +got):\n%s", diff)
	}

	// a value read before an invalidation is not stored
	if err := c.Invalidate(ctx, time.Minute, "a"); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}
	stored, err := c.SetIfVersion(ctx, "a", []string{"stale"}, time.Minute, versions["a"])
	if err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if stored {
		t.Error("expected stale value to be rejected")
	}
	if _, err := c.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected no cached value, got %v", err)
	}

	// untouched keys still accept their version
	stored, err = c.SetIfVersion(ctx, "b", []string{"fresh"}, time.Minute, versions["b"])
	if err != nil || !stored {
		t.Fatalf("expected value to be stored, got %v, %v", stored, err)
	}

	versions, err = c.Versions(ctx, "a")
	if err != nil {
		t.Fatalf("versions failed: %v", err)
	}
	if versions["a"] == 0 {
		t.Fatal("expected a new version after invalidate")
	}
	stored, err = c.SetIfVersion(ctx, "a", []string{"fresh"}, time.Minute, versions["a"])
	if err != nil || !stored {
		t.Fatalf("expected value to be stored, got %v, %v", stored, err)
	}
	got, err := c.Get(ctx, "a")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if diff := cmp.Diff([]string{"fresh"}, got); diff != "" {
		t.Errorf("value mismatch (-want +got):\n%s", diff)
	}
	if ttl := mr.TTL("test:version:a"); ttl != time.Minute+versionGrace {
		t.Errorf("expected version marker to outlive the value, ttl %v", ttl)
	}

	// versions never repeat, even once a marker expires
	mr.FastForward(time.Minute + versionGrace + time.Second)
	prev := versions["a"]
	if err := c.Invalidate(ctx, time.Minute, "a"); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}
	versions, err = c.Versions(ctx, "a")
	if err != nil {
		t.Fatalf("versions failed: %v", err)
	}
	if versions["a"] <= prev {
		t.Errorf("expected version above %d, got %d", prev, versions["a"])
	}
}

func TestChannel_PublishSubscribe(t *testing.T) {
	client, _ := setupTestClient(t)
	ch := NewChannel(Options[map[string]int]{
		Client:  client,
		Encoder: JSONEncoder[map[string]int](),
		Decoder: JSONDecoder[map[string]int](),
		Prefix:  "events",
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := ch.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer sub.Close()

	n, err := ch.Publish(ctx, map[string]int{"slot": 7})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 receiver, got %d", n)
	}

	select {
	case msg := <-sub.Messages():
		if msg["slot"] != 7 {
			t.Errorf("expected slot 7, got %v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}
