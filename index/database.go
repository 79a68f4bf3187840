package index

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// DbClient logs through Logger, or the standard logrus logger if it is nil.
type DbClient struct {
	Pool   *pgxpool.Pool
	Logger *logrus.Logger
}

func (db *DbClient) logger() *logrus.Logger {
	if db.Logger != nil {
		return db.Logger
	}
	return logrus.StandardLogger()
}

func (db *DbClient) logQuery(query string, args []any, settings RequestSettings) {
	if !settings.DebugRequest {
		return
	}
	db.logger().WithFields(logrus.Fields{
		"query": query,
		"args":  args,
	}).Info("debug query")
}

const schemaSql = `
create table if not exists transaction_logs (
    signature text primary key,
    slot bigint,
    log_messages text[] not null,
    trace_state text not null,
    trace_error text,
    is_success boolean,
    error_code text,
    error_value bigint,
    error_message text,
    programs text[] not null default '{}',
    created_at timestamptz not null default now()
);
create index if not exists transaction_logs_slot_idx on transaction_logs (slot);
create index if not exists transaction_logs_programs_idx on transaction_logs using gin (programs);
`

func NewDbClient(dsn string, maxconns int, minconns int) (*DbClient, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if maxconns > 0 {
		config.MaxConns = int32(maxconns)
	}
	if minconns > 0 {
		config.MinConns = int32(minconns)
	}
	config.HealthCheckPeriod = 60 * time.Second

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}
	if err = pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}
	return &DbClient{Pool: pool}, nil
}

// EnsureSchema creates the transaction_logs table when it is missing.
func (db *DbClient) EnsureSchema(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, schemaSql)
	return err
}

func (db *DbClient) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

func (db *DbClient) Close() {
	db.Pool.Close()
}
