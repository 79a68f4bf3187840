package ingest

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/kdimentionaltree/sol-trace-go/index"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const testQueue = "transaction_logs_queue"

type recordingStorer struct {
	mu     sync.Mutex
	stored []index.StoreLogsRequest
	err    error
	done   chan struct{}
}

func (r *recordingStorer) StoreLogs(ctx context.Context, req index.StoreLogsRequest) (*index.TransactionLogs, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	r.stored = append(r.stored, req)
	if r.done != nil {
		close(r.done)
		r.done = nil
	}
	return &index.TransactionLogs{Signature: index.SignatureType(req.Signature), TraceSummary: index.TraceSummary{TraceState: index.TraceStateOk}}, nil
}

func setupTestWorker(t *testing.T, storer LogsStorer) (*Worker, *miniredis.Miniredis) {
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

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return &Worker{
		Client:      client,
		Queue:       testQueue,
		Service:     storer,
		Logger:      logger,
		PollTimeout: 100 * time.Millisecond,
	}, mr
}

func testRequest() index.StoreLogsRequest {
	slot := uint64(42)
	return index.StoreLogsRequest{
		Signature: "sig",
		Slot:      &slot,
		LogMessages: []string{
			"Program 11111111111111111111111111111111 invoke [1]",
			"Program 11111111111111111111111111111111 success",
		},
	}
}

func TestTaskRoundTrip(t *testing.T) {
	req := testRequest()
	data, err := EncodeStoreLogsTask(req)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	got, err := DecodeTask(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if diff := cmp.Diff(req, *got); diff != "" {
		t.Errorf("task mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessTask_Failures(t *testing.T) {
	storer := &recordingStorer{err: errors.New("db is down")}
	w, mr := setupTestWorker(t, storer)
	ctx := context.Background()

	data, err := EncodeStoreLogsTask(testRequest())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if w.ProcessTask(ctx, data) {
		t.Error("expected store failure")
	}
	if w.ProcessTask(ctx, []byte("garbage")) {
		t.Error("expected decode failure")
	}

	failed, err := mr.List(testQueue + ":failed")
	if err != nil {
		t.Fatalf("failed queue missing: %v", err)
	}
	if len(failed) != 2 {
		t.Errorf("expected 2 failed tasks, got %d", len(failed))
	}
}

func TestDecodeTask_UnknownType(t *testing.T) {
	_, err := DecodeTask([]byte{0x82, 0xa4, 't', 'y', 'p', 'e', 0xa3, 'f', 'o', 'o', 0xa4, 't', 'a', 's', 'k', 0xc0})
	if err == nil {
		t.Error("expected error for unknown task type")
	}
}

func TestWorker_Run(t *testing.T) {
	storer := &recordingStorer{done: make(chan struct{})}
	done := storer.done
	w, _ := setupTestWorker(t, storer)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := Enqueue(ctx, w.Client, testQueue, testRequest()); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Run(ctx, 2)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for task to be stored")
	}
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}

	storer.mu.Lock()
	defer storer.mu.Unlock()
	if len(storer.stored) != 1 || storer.stored[0].Signature != "sig" {
		t.Errorf("unexpected stored tasks: %v", storer.stored)
	}
}
