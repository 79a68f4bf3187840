package index

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
)

// settings
type RequestSettings struct {
	Timeout      time.Duration
	DefaultLimit int
	MaxLimit     int
	MaxLogLines  int
	CacheTtl     time.Duration
	DebugRequest bool
}

// requests
type TransactionLogsRequest struct {
	Signature []SignatureType `query:"signature"`
	Program   *ProgramIdType  `query:"program"`
	IsSuccess *bool           `query:"is_success"`
	State     *TraceState     `query:"trace_state"`
}

type TransactionTraceRequest struct {
	Signature []SignatureType `query:"signature"`
}

type SlotRequest struct {
	StartSlot *uint64 `query:"start_slot"`
	EndSlot   *uint64 `query:"end_slot"`
}

type SortType string

const (
	DESC SortType = "desc"
	ASC  SortType = "asc"
)

type LimitRequest struct {
	Limit  *int32    `query:"limit"`
	Offset *int32    `query:"offset"`
	Sort   *SortType `query:"sort"`
}

// ParseLogsRequest carries log lines to trace without storing them.
type ParseLogsRequest struct {
	Signature   *string  `json:"signature" example:"5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW"`
	LogMessages []string `json:"log_messages"`
} // @name ParseLogsRequest

// StoreLogsRequest stores the log lines of a transaction.
type StoreLogsRequest struct {
	Signature   string   `json:"signature" msgpack:"signature" example:"5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW"`
	Slot        *uint64  `json:"slot" msgpack:"slot" example:"250000000"`
	LogMessages []string `json:"log_messages" msgpack:"log_messages"`
} // @name StoreLogsRequest

func validateLines(lines []string, settings RequestSettings) error {
	if len(lines) == 0 {
		return IndexError{Code: 422, Message: "log_messages is required"}
	}
	if settings.MaxLogLines > 0 && len(lines) > settings.MaxLogLines {
		return IndexError{Code: 422, Message: fmt.Sprintf("too many log messages: %d > %d", len(lines), settings.MaxLogLines)}
	}
	return nil
}

func (req ParseLogsRequest) Validate(settings RequestSettings) error {
	if req.Signature != nil {
		if _, err := solana.SignatureFromBase58(*req.Signature); err != nil {
			return IndexError{Code: 422, Message: fmt.Sprintf("invalid signature: %v", err)}
		}
	}
	return validateLines(req.LogMessages, settings)
}

func (req StoreLogsRequest) Validate(settings RequestSettings) error {
	if len(req.Signature) == 0 {
		return IndexError{Code: 422, Message: "signature is required"}
	}
	if _, err := solana.SignatureFromBase58(req.Signature); err != nil {
		return IndexError{Code: 422, Message: fmt.Sprintf("invalid signature: %v", err)}
	}
	return validateLines(req.LogMessages, settings)
}
