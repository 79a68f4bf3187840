package trace

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	programLogPrefix  = "Program log: "
	programDataPrefix = "Program data: "
	reasonPrefix      = "Reason: "
)

// ids never contain ':', so "Program log: ..." and friends can't match as one.
const programIdPattern = `([^\s:]+)`

var (
	reInvoke         = regexp.MustCompile(`^Program ` + programIdPattern + ` invoke \[(\d+)\]$`)
	reReturn         = regexp.MustCompile(`^Program return: ` + programIdPattern + ` (\S*)$`)
	reSuccess        = regexp.MustCompile(`^Program ` + programIdPattern + ` success$`)
	reCustomError    = regexp.MustCompile(`^Program ` + programIdPattern + ` failed: custom program error: (\S+)$`)
	reFailedToFinish = regexp.MustCompile(`^Program ` + programIdPattern + ` failed: (?i:program failed to complete)$`)
	reFailed         = regexp.MustCompile(`^Program ` + programIdPattern + ` failed: (.+)$`)
	rePanicQuoted    = regexp.MustCompile(`^panicked at '(.*)', (\S+)$`)
	rePanic          = regexp.MustCompile(`^panicked at (.+)$`)
	reExplicitError  = regexp.MustCompile(`^Error: (.+)$`)
	reAnchorError    = regexp.MustCompile(`^AnchorError .*Error Message: (.+?)\.?$`)
)

type rule func(line string) (Entry, bool)

// lineRules are evaluated top to bottom, first match wins.
var lineRules = []rule{
	matchInvoke,
	matchProgramLog,
	matchProgramData,
	matchReturn,
	matchSuccess,
	matchCustomError,
	matchFailedToFinish,
	matchFailed,
}

// errorRules sub-classify the text after "Program log: ".
var errorRules = []*regexp.Regexp{
	rePanicQuoted,
	rePanic,
	reExplicitError,
	reAnchorError,
}

// Classify maps one runtime log line to its entry. It never fails: lines no
// rule recognizes become an OtherEntry holding the line unchanged.
func Classify(line string) Entry {
	for _, match := range lineRules {
		if entry, ok := match(line); ok {
			return entry
		}
	}
	return OtherEntry{Line: line}
}

func matchInvoke(line string) (Entry, bool) {
	m := reInvoke.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	depth, err := strconv.Atoi(m[2])
	if err != nil || depth < 1 {
		return nil, false
	}
	if depth == 1 {
		return StartEntry{Program: ProgramId(m[1]), Depth: depth}, true
	}
	return SubCallEntry{Program: ProgramId(m[1]), Depth: depth}, true
}

func matchProgramLog(line string) (Entry, bool) {
	text, ok := strings.CutPrefix(line, programLogPrefix)
	if !ok {
		return nil, false
	}
	for _, re := range errorRules {
		if m := re.FindStringSubmatch(text); m != nil {
			return ErrorEntry{Reason: reasonPrefix + m[1]}, true
		}
	}
	return MessageEntry{Text: text}, true
}

func matchProgramData(line string) (Entry, bool) {
	payload, ok := strings.CutPrefix(line, programDataPrefix)
	if !ok {
		return nil, false
	}
	return DataEntry{Payload: payload}, true
}

func matchReturn(line string) (Entry, bool) {
	m := reReturn.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	return ReturnEntry{Program: ProgramId(m[1]), Value: m[2]}, true
}

func matchSuccess(line string) (Entry, bool) {
	m := reSuccess.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	return SuccessEntry{Program: ProgramId(m[1])}, true
}

func matchCustomError(line string) (Entry, bool) {
	m := reCustomError.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	return FailedEntry{
		Program: ProgramId(m[1]),
		Code:    m[2],
		Cause:   "custom program error: " + m[2],
	}, true
}

func matchFailedToFinish(line string) (Entry, bool) {
	m := reFailedToFinish.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	return FailedEntry{
		Program: ProgramId(m[1]),
		Code:    AbortErrorCode.Hex,
		Cause:   line[strings.Index(line, "failed: ")+len("failed: "):],
	}, true
}

// matchFailed covers runtime aborts that carry no program error code, e.g.
// "insufficient funds for instruction" or an exhausted compute meter.
func matchFailed(line string) (Entry, bool) {
	m := reFailed.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	return FailedEntry{
		Program: ProgramId(m[1]),
		Code:    AbortErrorCode.Hex,
		Cause:   m[2],
	}, true
}
