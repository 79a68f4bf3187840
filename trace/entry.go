package trace

import "strconv"

// Entry is a classified log line. The concrete type is one of the *Entry
// structs below, one per Category.
type Entry interface {
	Category() Category
	Content() string
	isEntry()
}

// StartEntry opens a top level instruction.
type StartEntry struct {
	Program ProgramId
	Depth   int
}

// SubCallEntry opens a cross-program invocation (depth > 1).
type SubCallEntry struct {
	Program ProgramId
	Depth   int
}

// MessageEntry is free text written by program code.
type MessageEntry struct {
	Text string
}

// DataEntry holds a base64 payload from sol_log_data.
type DataEntry struct {
	Payload string
}

// ReturnEntry holds a base64 return value set by Program.
type ReturnEntry struct {
	Program ProgramId
	Value   string
}

// ErrorEntry is an error-shaped diagnostic, normalized to "Reason: ...".
type ErrorEntry struct {
	Reason string
}

// SuccessEntry closes the current call successfully.
type SuccessEntry struct {
	Program ProgramId
}

// FailedEntry closes the current call with a failure. Code is the hex code
// as printed by the runtime, or "0x0" when the runtime aborted the program
// without a program-defined code; Cause is the text after "failed: ".
type FailedEntry struct {
	Program ProgramId
	Code    string
	Cause   string
}

// OtherEntry is any line no rule recognized.
type OtherEntry struct {
	Line string
}

func (StartEntry) Category() Category   { return CategoryStart }
func (SubCallEntry) Category() Category { return CategorySubCall }
func (MessageEntry) Category() Category { return CategoryMessage }
func (DataEntry) Category() Category    { return CategoryData }
func (ReturnEntry) Category() Category  { return CategoryReturn }
func (ErrorEntry) Category() Category   { return CategoryError }
func (SuccessEntry) Category() Category { return CategorySuccess }
func (FailedEntry) Category() Category  { return CategoryFailed }
func (OtherEntry) Category() Category   { return CategoryOther }

func (e StartEntry) Content() string   { return string(e.Program) }
func (e SubCallEntry) Content() string { return string(e.Program) }
func (e MessageEntry) Content() string { return e.Text }
func (e DataEntry) Content() string    { return e.Payload }
func (e ReturnEntry) Content() string  { return e.Value }
func (e ErrorEntry) Content() string   { return e.Reason }
func (e SuccessEntry) Content() string { return string(e.Program) }
func (e FailedEntry) Content() string  { return string(e.Program) + "|" + e.Code }
func (e OtherEntry) Content() string   { return e.Line }

func (StartEntry) isEntry()   {}
func (SubCallEntry) isEntry() {}
func (MessageEntry) isEntry() {}
func (DataEntry) isEntry()    {}
func (ReturnEntry) isEntry()  {}
func (ErrorEntry) isEntry()   {}
func (SuccessEntry) isEntry() {}
func (FailedEntry) isEntry()  {}
func (OtherEntry) isEntry()   {}

// LogMessage is a classified line as it is recorded on a call node.
type LogMessage struct {
	Category Category `json:"category" msgpack:"category"`
	Content  string   `json:"content" msgpack:"content"`
}

func NewLogMessage(e Entry) LogMessage {
	return LogMessage{Category: e.Category(), Content: e.Content()}
}

// ErrorCode is a failure code in both its printed and numeric form.
type ErrorCode struct {
	Hex   string `json:"hex" msgpack:"hex"`
	Value uint64 `json:"value" msgpack:"value"`
}

// AbortErrorCode is reported when the runtime stopped a program that did not
// return a program-defined error code.
var AbortErrorCode = ErrorCode{Hex: "0x0", Value: 0}

// ParseErrorCode decodes a "0x..." code. Anything unparsable yields
// AbortErrorCode and ok=false.
func ParseErrorCode(hex string) (code ErrorCode, ok bool) {
	if len(hex) < 3 || (hex[:2] != "0x" && hex[:2] != "0X") {
		return AbortErrorCode, false
	}
	value, err := strconv.ParseUint(hex[2:], 16, 64)
	if err != nil {
		return AbortErrorCode, false
	}
	return ErrorCode{Hex: hex, Value: value}, true
}
