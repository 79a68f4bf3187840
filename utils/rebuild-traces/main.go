package main

import (
	"context"
	"flag"
	"sync"
	"time"

	"github.com/kdimentionaltree/sol-trace-go/cache"
	"github.com/kdimentionaltree/sol-trace-go/index"
	"github.com/kdimentionaltree/sol-trace-go/trace"
	"github.com/redis/go-redis/v9"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

var pbar *progressbar.ProgressBar
var gate *semaphore.Weighted
var logger *logrus.Logger
var cache_ttl time.Duration

type rebuildStats struct {
	mu        sync.Mutex
	updated   int64
	malformed int
}

func (s *rebuildStats) add(updated int64, summaries map[index.SignatureType]index.TraceSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated += updated
	for _, summary := range summaries {
		if summary.TraceState == index.TraceStateMalformed {
			s.malformed++
		}
	}
}

func ProcessBatch(ctx context.Context, db *index.DbClient, traces *cache.Cache[trace.TransactionTrace],
	signatures []index.SignatureType, max_lines int, stats *rebuildStats) {
	defer gate.Release(1)

	logs, err := db.QueryLogMessages(ctx, signatures)
	if err != nil {
		logger.WithError(err).Fatal("failed to read batch")
	}
	summaries := index.RebuildSummaries(logs, max_lines)
	updated, err := db.UpdateTraceSummaries(ctx, summaries)
	if err != nil {
		logger.WithError(err).Fatal("failed to update batch")
	}
	if traces != nil {
		keys := make([]string, len(signatures))
		for i, s := range signatures {
			keys[i] = string(s)
		}
		if err := traces.Invalidate(ctx, cache_ttl, keys...); err != nil {
			logger.WithError(err).Warn("failed to invalidate cached traces")
		}
	}
	stats.add(updated, summaries)
	pbar.Add(len(signatures))
}

func main() {
	var pg_dsn string
	var redis_dsn string
	var batch_size int
	var processes int
	var max_lines int
	var only_malformed bool
	flag.StringVar(&pg_dsn, "pg", "postgresql://localhost:5432", "PostgreSQL connection string")
	flag.StringVar(&redis_dsn, "redis", "", "Redis connection string, cached traces are invalidated if set")
	flag.IntVar(&batch_size, "batch", 100, "Size of batch")
	flag.IntVar(&processes, "processes", 32, "Set number of parallel queries")
	flag.IntVar(&max_lines, "max-lines", trace.DefaultMaxLines, "Maximum number of log lines in a transaction")
	flag.DurationVar(&cache_ttl, "cache-ttl", time.Hour, "TTL of cached traces, must match the API server")
	flag.BoolVar(&only_malformed, "only-malformed", false, "Rebuild only traces stored as malformed")
	flag.Parse()

	logger = logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx := context.Background()
	db, err := index.NewDbClient(pg_dsn, processes+1, 0)
	if err != nil {
		logger.WithError(err).Fatal("failed to open database connection")
	}
	db.Logger = logger
	defer db.Close()

	var traces *cache.Cache[trace.TransactionTrace]
	if redis_dsn != "" {
		opts, err := redis.ParseURL(redis_dsn)
		if err != nil {
			logger.WithError(err).Fatal("invalid redis connection string")
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		traces = cache.NewManager(rdb).Traces
	}

	var state *index.TraceState
	if only_malformed {
		s := index.TraceStateMalformed
		state = &s
	}
	total, err := db.CountTransactionLogs(ctx, state)
	if err != nil {
		logger.WithError(err).Fatal("failed to read count")
	}
	pbar = progressbar.NewOptions(total, progressbar.OptionFullWidth(), progressbar.OptionShowCount(), progressbar.OptionShowIts())
	gate = semaphore.NewWeighted(int64(processes))
	stats := &rebuildStats{}

	logger.Infof("rebuilding %d traces...", total)
	err = db.ScanSignatures(ctx, state, batch_size, func(batch []index.SignatureType) error {
		if err := gate.Acquire(ctx, 1); err != nil {
			return err
		}
		go ProcessBatch(ctx, db, traces, batch, max_lines, stats)
		return nil
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to read signatures")
	}
	// wait for running batches
	if err := gate.Acquire(ctx, int64(processes)); err != nil {
		logger.WithError(err).Fatal("failed to wait for workers")
	}
	pbar.Finish()

	logger.WithFields(logrus.Fields{
		"total":     total,
		"updated":   stats.updated,
		"malformed": stats.malformed,
	}).Info("done")
}
