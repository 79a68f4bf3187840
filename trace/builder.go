package trace

import (
	"errors"
	"fmt"
)

// DefaultMaxLines bounds the input of Build. The runtime truncates its own
// log output far below this.
const DefaultMaxLines = 1 << 16

var (
	ErrMalformedTrace = errors.New("malformed trace")
	ErrTooManyLines   = errors.New("too many log lines")
)

// MalformedTraceError reports a log stream whose invoke/close markers do not
// nest. Position is the 0-based index of the offending line, or len(lines)
// when the stream ended with calls still open.
type MalformedTraceError struct {
	Position int
	Line     string
	Reason   string
}

func (e *MalformedTraceError) Error() string {
	if e.Line == "" {
		return fmt.Sprintf("%s at line %d: %s", ErrMalformedTrace, e.Position, e.Reason)
	}
	return fmt.Sprintf("%s at line %d: %s (%q)", ErrMalformedTrace, e.Position, e.Reason, e.Line)
}

func (e *MalformedTraceError) Unwrap() error {
	return ErrMalformedTrace
}

// Build reconstructs the call trees of one transaction from its log lines.
// Roots are returned in invocation order.
func Build(lines []string) ([]*InstructionLog, error) {
	return BuildLimited(lines, DefaultMaxLines)
}

// BuildLimited is Build with an explicit input bound; maxLines <= 0 disables
// the bound.
func BuildLimited(lines []string, maxLines int) ([]*InstructionLog, error) {
	if maxLines > 0 && len(lines) > maxLines {
		return nil, fmt.Errorf("%w: %d lines, limit is %d", ErrTooManyLines, len(lines), maxLines)
	}
	b := builder{roots: []*InstructionLog{}}
	for pos, line := range lines {
		if err := b.push(pos, line, Classify(line)); err != nil {
			return nil, err
		}
	}
	if len(b.stack) > 0 {
		open := b.stack[len(b.stack)-1]
		return nil, &MalformedTraceError{
			Position: len(lines),
			Reason:   fmt.Sprintf("log ended with %d open call(s), innermost %s", len(b.stack), open.ProgramId),
		}
	}
	return b.roots, nil
}

type builder struct {
	stack []*InstructionLog
	roots []*InstructionLog
}

func (b *builder) top() *InstructionLog {
	if len(b.stack) == 0 {
		return nil
	}
	return b.stack[len(b.stack)-1]
}

func (b *builder) push(pos int, line string, entry Entry) error {
	malformed := func(format string, args ...any) error {
		return &MalformedTraceError{Position: pos, Line: line, Reason: fmt.Sprintf(format, args...)}
	}

	var program ProgramId
	var depth int
	switch e := entry.(type) {
	case StartEntry:
		program, depth = e.Program, e.Depth
	case SubCallEntry:
		program, depth = e.Program, e.Depth
	}
	if entry.Category().IsInvoke() {
		if depth != len(b.stack)+1 {
			return malformed("invoke depth %d with %d open call(s)", depth, len(b.stack))
		}
		node := newInstructionLog(program, depth)
		node.Messages = append(node.Messages, NewLogMessage(entry))
		b.stack = append(b.stack, node)
		return nil
	}

	current := b.top()
	if current == nil {
		if entry.Category().IsClose() {
			return malformed("%s marker without an open call", entry.Category())
		}
		return malformed("line outside of any call")
	}
	current.Messages = append(current.Messages, NewLogMessage(entry))

	switch e := entry.(type) {
	case DataEntry:
		current.Datas = append(current.Datas, e.Payload)
	case ReturnEntry:
		if current.Return == nil {
			value := e.Value
			current.Return = &value
		}
	case ErrorEntry:
		reason := e.Reason
		current.ErrorMessage = &reason
	case SuccessEntry:
		if e.Program != current.ProgramId {
			return malformed("success of %s while %s is open", e.Program, current.ProgramId)
		}
		b.close(current, true)
	case FailedEntry:
		if e.Program != current.ProgramId {
			return malformed("failure of %s while %s is open", e.Program, current.ProgramId)
		}
		code, _ := ParseErrorCode(e.Code)
		current.ErrorCode = &code
		b.close(current, false)
	}
	return nil
}

// close finalizes the top node and hands it to its parent. A node with
// children takes its status from them: it succeeded iff all of them did,
// whatever its own marker said.
func (b *builder) close(node *InstructionLog, succeeded bool) {
	if len(node.Children) == 0 {
		node.IsSuccess = succeeded
	} else {
		node.IsSuccess = true
		for _, child := range node.Children {
			node.IsSuccess = node.IsSuccess && child.IsSuccess
		}
	}

	b.stack = b.stack[:len(b.stack)-1]
	if parent := b.top(); parent != nil {
		parent.Children = append(parent.Children, node)
	} else {
		b.roots = append(b.roots, node)
	}
}
