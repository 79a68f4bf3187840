// Package ingest consumes transaction logs pushed to a Redis list by log
// collectors and stores them with their trace summaries.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kdimentionaltree/sol-trace-go/index"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"
)

const TaskTypeStoreLogs = "store_logs"

type TaskEnvelope struct {
	Type string             `msgpack:"type"` // "store_logs"
	Task msgpack.RawMessage `msgpack:"task"`
}

// EncodeStoreLogsTask packs a request the way collectors push it to the queue.
func EncodeStoreLogsTask(req index.StoreLogsRequest) ([]byte, error) {
	task, err := msgpack.Marshal(req)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseArrayEncodedStructs(false) // map-encoding
	if err := enc.Encode(TaskEnvelope{Type: TaskTypeStoreLogs, Task: task}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeTask(data []byte) (*index.StoreLogsRequest, error) {
	var env TaskEnvelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("invalid task envelope: %w", err)
	}
	if env.Type != TaskTypeStoreLogs {
		return nil, fmt.Errorf("unknown task type: %q", env.Type)
	}
	var req index.StoreLogsRequest
	if err := msgpack.Unmarshal(env.Task, &req); err != nil {
		return nil, fmt.Errorf("invalid %s task: %w", env.Type, err)
	}
	return &req, nil
}

// Enqueue pushes a store request to the queue.
func Enqueue(ctx context.Context, rdb *redis.Client, queue string, req index.StoreLogsRequest) error {
	data, err := EncodeStoreLogsTask(req)
	if err != nil {
		return err
	}
	return rdb.LPush(ctx, queue, data).Err()
}

type LogsStorer interface {
	StoreLogs(ctx context.Context, req index.StoreLogsRequest) (*index.TransactionLogs, error)
}

type Worker struct {
	Client  *redis.Client
	Queue   string
	Service LogsStorer
	Logger  *logrus.Logger
	// PollTimeout bounds a single BRPOP so shutdown is noticed.
	PollTimeout time.Duration
}

func (w *Worker) failedQueue() string {
	return w.Queue + ":failed"
}

// Run starts n consumers and blocks until ctx is canceled or Redis fails.
func (w *Worker) Run(ctx context.Context, n int) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < max(1, n); i++ {
		g.Go(func() error {
			return w.consume(ctx)
		})
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *Worker) consume(ctx context.Context) error {
	timeout := w.PollTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := w.Client.BRPop(ctx, timeout, w.Queue).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to pop from %s: %w", w.Queue, err)
		}
		// res is [queue, payload]
		w.ProcessTask(ctx, []byte(res[1]))
	}
}

// ProcessTask stores one queued task. Tasks that cannot be decoded or stored
// are moved to the failed queue.
func (w *Worker) ProcessTask(ctx context.Context, data []byte) bool {
	req, err := DecodeTask(data)
	if err == nil {
		var row *index.TransactionLogs
		row, err = w.Service.StoreLogs(ctx, *req)
		if err == nil {
			w.Logger.WithFields(logrus.Fields{
				"signature":   row.Signature,
				"trace_state": row.TraceState,
			}).Debug("stored transaction logs")
			return true
		}
	}

	fields := logrus.Fields{"queue": w.Queue}
	if req != nil {
		fields["signature"] = req.Signature
	}
	w.Logger.WithFields(fields).WithError(err).Error("failed to process task")
	if perr := w.Client.LPush(ctx, w.failedQueue(), data).Err(); perr != nil {
		w.Logger.WithError(perr).Error("failed to push task to failed queue")
	}
	return false
}
