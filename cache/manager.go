package cache

import (
	"github.com/kdimentionaltree/sol-trace-go/trace"
	"github.com/redis/go-redis/v9"
)

// Manager holds all typed caches for the application.
type Manager struct {
	// Traces cache: signature -> TransactionTrace (TTL, use GetEx)
	Traces *Cache[trace.TransactionTrace]
}

func NewManager(client *redis.Client) *Manager {
	return &Manager{
		Traces: New(Options[trace.TransactionTrace]{
			Client:  client,
			Encoder: MsgpackEncoder[trace.TransactionTrace](),
			Decoder: MsgpackDecoder[trace.TransactionTrace](),
			Prefix:  "trace",
		}),
	}
}
