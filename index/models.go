package index

import (
	"github.com/kdimentionaltree/sol-trace-go/trace"
)

type SignatureType string
type ProgramIdType string

type TraceState string

const (
	TraceStateOk        TraceState = "ok"
	TraceStateMalformed TraceState = "malformed"
)

// TraceSummary is the stored outcome of a transaction's log trace.
type TraceSummary struct {
	TraceState   TraceState        `json:"trace_state" msgpack:"trace_state"`
	TraceError   *string           `json:"trace_error,omitempty" msgpack:"trace_error"`
	IsSuccess    *bool             `json:"is_success" msgpack:"is_success"`
	ErrorCode    *trace.ErrorCode  `json:"error_code,omitempty" msgpack:"error_code"`
	ErrorMessage *string           `json:"error_message,omitempty" msgpack:"error_message"`
	Programs     []trace.ProgramId `json:"programs" msgpack:"programs"`
} // @name TraceSummary

// TransactionLogs is a row of the transaction_logs table.
type TransactionLogs struct {
	Signature   SignatureType `json:"signature" msgpack:"signature"`
	Slot        *uint64       `json:"slot,string" msgpack:"slot"`
	LogMessages []string      `json:"log_messages,omitempty" msgpack:"log_messages"`
	TraceSummary
} // @name TransactionLogs

// NewTraceSummary summarizes a processed trace, or the error that prevented
// building it.
func NewTraceSummary(res *trace.TransactionTrace, build_err error) TraceSummary {
	if build_err != nil {
		msg := build_err.Error()
		return TraceSummary{
			TraceState: TraceStateMalformed,
			TraceError: &msg,
			Programs:   []trace.ProgramId{},
		}
	}
	is_success := res.IsSuccess
	return TraceSummary{
		TraceState:   TraceStateOk,
		IsSuccess:    &is_success,
		ErrorCode:    res.ErrorCode,
		ErrorMessage: res.ErrorMessage,
		Programs:     res.Programs(),
	}
}

// RebuildSummaries recomputes the summaries of stored log lines.
func RebuildSummaries(logs map[SignatureType][]string, max_lines int) map[SignatureType]TraceSummary {
	res := make(map[SignatureType]TraceSummary, len(logs))
	for signature, lines := range logs {
		t, err := trace.ProcessTransaction(string(signature), lines, max_lines)
		res[signature] = NewTraceSummary(&t, err)
	}
	return res
}
