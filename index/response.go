package index

import (
	"github.com/kdimentionaltree/sol-trace-go/trace"
)

// responses
type TransactionLogsResponse struct {
	TransactionLogs []TransactionLogs `json:"transaction_logs"`
} // @name TransactionLogsResponse

type TransactionTracesResponse struct {
	Traces []trace.TransactionTrace `json:"traces"`
} // @name TransactionTracesResponse

// errors
type IndexError struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
} // @name RequestError

func (e IndexError) Error() string {
	return e.Message
}
