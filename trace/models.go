package trace

import (
	"encoding/base64"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
)

// InstructionLog is one program invocation and everything it logged.
type InstructionLog struct {
	ProgramId    ProgramId         `json:"program_id" msgpack:"program_id"`
	Depth        int               `json:"depth" msgpack:"depth"`
	Messages     []LogMessage      `json:"messages" msgpack:"messages"`
	Datas        []string          `json:"datas" msgpack:"datas"`
	Return       *string           `json:"return" msgpack:"return"`
	IsSuccess    bool              `json:"is_success" msgpack:"is_success"`
	ErrorCode    *ErrorCode        `json:"error_code,omitempty" msgpack:"error_code"`
	ErrorMessage *string           `json:"error_message,omitempty" msgpack:"error_message"`
	Children     []*InstructionLog `json:"children" msgpack:"children"`
} // @name InstructionLog

func newInstructionLog(program ProgramId, depth int) *InstructionLog {
	return &InstructionLog{
		ProgramId: program,
		Depth:     depth,
		Messages:  []LogMessage{},
		Datas:     []string{},
		IsSuccess: true,
		Children:  []*InstructionLog{},
	}
}

// Walk visits the node and its descendants depth first, parents before
// children. Returning false from fn skips the node's children.
func (l *InstructionLog) Walk(fn func(node *InstructionLog) bool) {
	if !fn(l) {
		return
	}
	for _, child := range l.Children {
		child.Walk(fn)
	}
}

func (l *InstructionLog) DecodedDatas() ([][]byte, error) {
	res := make([][]byte, 0, len(l.Datas))
	for i, data := range l.Datas {
		raw, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, fmt.Errorf("invalid data payload #%d of program %s: %w", i, l.ProgramId, err)
		}
		res = append(res, raw)
	}
	return res, nil
}

// DecodedReturn returns nil, nil when the program set no return value.
func (l *InstructionLog) DecodedReturn() ([]byte, error) {
	if l.Return == nil {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(*l.Return)
	if err != nil {
		return nil, fmt.Errorf("invalid return value of program %s: %w", l.ProgramId, err)
	}
	return raw, nil
}

// TransactionTrace is the call tree of one transaction with its verdict.
type TransactionTrace struct {
	Signature     *string           `json:"signature,omitempty" msgpack:"signature"`
	RootCalls     []*InstructionLog `json:"instruction_logs" msgpack:"instruction_logs"`
	RawLines      []string          `json:"raw_log_messages" msgpack:"raw_log_messages"`
	IsSuccess     bool              `json:"is_success" msgpack:"is_success"`
	ErrorCode     *ErrorCode        `json:"error_code,omitempty" msgpack:"error_code"`
	ErrorMessage  *string           `json:"error_message,omitempty" msgpack:"error_message"`
	FailedProgram *ProgramId        `json:"failed_program,omitempty" msgpack:"failed_program"`
} // @name TransactionTrace

func (t *TransactionTrace) walk(fn func(node *InstructionLog) bool) {
	for _, root := range t.RootCalls {
		root.Walk(fn)
	}
}

// Programs returns every invoked program once, in order of first invocation.
func (t *TransactionTrace) Programs() []ProgramId {
	seen := mapset.NewThreadUnsafeSet[ProgramId]()
	res := []ProgramId{}
	t.walk(func(node *InstructionLog) bool {
		if seen.Add(node.ProgramId) {
			res = append(res, node.ProgramId)
		}
		return true
	})
	return res
}

func (t *TransactionTrace) MaxDepth() int {
	max_depth := 0
	t.walk(func(node *InstructionLog) bool {
		if node.Depth > max_depth {
			max_depth = node.Depth
		}
		return true
	})
	return max_depth
}

// MessageCount is the number of lines attributed to call nodes. For a trace
// produced by Process it always equals len(RawLines).
func (t *TransactionTrace) MessageCount() int {
	count := 0
	t.walk(func(node *InstructionLog) bool {
		count += len(node.Messages)
		return true
	})
	return count
}
