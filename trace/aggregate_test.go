package trace

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustProcess(t *testing.T, lines []string) TransactionTrace {
	t.Helper()
	res, err := Process(lines)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if got := res.MessageCount(); got != len(lines) {
		t.Fatalf("expected %d attributed lines, got %d", len(lines), got)
	}
	return res
}

func TestAggregate_Success(t *testing.T) {
	for _, lines := range [][]string{
		{"Program P1 invoke [1]", "Program P1 success", "Program P2 invoke [1]", "Program P2 success"},
		{"Program P1 invoke [1]", "Program P2 invoke [2]", "Program P2 success", "Program P1 success"},
	} {
		res := mustProcess(t, lines)
		if !res.IsSuccess {
			t.Errorf("expected success for %v", lines)
		}
		if res.ErrorCode != nil || res.ErrorMessage != nil || res.FailedProgram != nil {
			t.Errorf("expected no error for %v", lines)
		}
		if diff := cmp.Diff(lines, res.RawLines); diff != "" {
			t.Errorf("raw lines (-want +got):\n%s", diff)
		}
	}
}

func TestAggregate_DeepestCause(t *testing.T) {
	res := mustProcess(t, []string{
		"Program P1 invoke [1]",
		"Program P2 invoke [2]",
		"Program P2 failed: custom program error: 0x1770",
		"Program P1 failed: custom program error: 0x1770",
	})
	if res.IsSuccess {
		t.Fatalf("expected failure")
	}
	if res.RootCalls[0].IsSuccess {
		t.Errorf("expected root to fail")
	}
	if diff := cmp.Diff(&ErrorCode{Hex: "0x1770", Value: 6000}, res.ErrorCode); diff != "" {
		t.Errorf("error code (-want +got):\n%s", diff)
	}
	if res.FailedProgram == nil || *res.FailedProgram != "P2" {
		t.Errorf("expected P2 as failed program, got %v", res.FailedProgram)
	}
}

func TestAggregate_Abort(t *testing.T) {
	res := mustProcess(t, []string{
		"Program P1 invoke [1]",
		"Program log: panicked at 'attempt to multiply with overflow', src/lib.rs:12:5",
		"Program P1 failed: Program failed to complete",
	})
	if res.IsSuccess {
		t.Fatalf("expected failure")
	}
	if res.ErrorCode == nil || res.ErrorCode.Hex != "0x0" || res.ErrorCode.Value != 0 {
		t.Errorf("expected 0x0 sentinel, got %v", res.ErrorCode)
	}
	if res.ErrorMessage == nil || *res.ErrorMessage != "Reason: attempt to multiply with overflow" {
		t.Errorf("unexpected message %v", res.ErrorMessage)
	}
}

func TestAggregate_AnchorError(t *testing.T) {
	res := mustProcess(t, []string{
		"Program " + testProgram + " invoke [1]",
		"Program log: Instruction: Announce",
		"Program log: AnchorError thrown in programs/test_framework/src/lib.rs:30. Error Code: ContentTooLong. Error Number: 6000. Error Message: Content is too long.",
		"Program " + testProgram + " consumed 4321 of 200000 compute units",
		"Program " + testProgram + " failed: custom program error: 0x1770",
	})
	if res.IsSuccess {
		t.Fatalf("expected failure")
	}
	if res.ErrorCode == nil || res.ErrorCode.Value != 6000 {
		t.Errorf("expected code 6000, got %v", res.ErrorCode)
	}
	if res.ErrorMessage == nil || *res.ErrorMessage != "Reason: Content is too long" {
		t.Errorf("unexpected message %v", res.ErrorMessage)
	}
}

func TestAggregate_LeftmostFailure(t *testing.T) {
	res := mustProcess(t, []string{
		"Program A invoke [1]",
		"Program A success",
		"Program B invoke [1]",
		"Program C invoke [2]",
		"Program C success",
		"Program D invoke [2]",
		"Program log: Error: insufficient balance",
		"Program D failed: custom program error: 0x1",
		"Program B failed: custom program error: 0x1",
		"Program E invoke [1]",
		"Program E failed: custom program error: 0x2",
	})
	if res.IsSuccess {
		t.Fatalf("expected failure")
	}
	if res.FailedProgram == nil || *res.FailedProgram != "D" {
		t.Errorf("expected D as failed program, got %v", res.FailedProgram)
	}
	if res.ErrorCode == nil || res.ErrorCode.Value != 1 {
		t.Errorf("expected code 1 from D, got %v", res.ErrorCode)
	}
	if res.ErrorMessage == nil || *res.ErrorMessage != "Reason: insufficient balance" {
		t.Errorf("unexpected message %v", res.ErrorMessage)
	}
}

func TestAggregate_DeeperNodeOverwritesMessage(t *testing.T) {
	res := mustProcess(t, []string{
		"Program P1 invoke [1]",
		"Program log: Error: outer",
		"Program P2 invoke [2]",
		"Program P2 failed: custom program error: 0x3",
		"Program P1 failed: custom program error: 0x3",
	})
	if res.ErrorMessage != nil {
		t.Errorf("the deepest failed node has no message, got %q", *res.ErrorMessage)
	}
	if res.ErrorCode == nil || res.ErrorCode.Value != 3 {
		t.Errorf("expected code 3, got %v", res.ErrorCode)
	}
}

func TestAggregate_OverriddenParentCountsAsSuccess(t *testing.T) {
	res := mustProcess(t, []string{
		"Program P1 invoke [1]",
		"Program P2 invoke [2]",
		"Program P2 success",
		"Program P1 failed: custom program error: 0x9",
	})
	if !res.IsSuccess {
		t.Errorf("expected success derived from children")
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	lines := []string{
		"Program P1 invoke [1]",
		"Program P2 invoke [2]",
		"Program log: Error: boom",
		"Program P2 failed: custom program error: 0x1770",
		"Program P1 failed: custom program error: 0x1770",
	}
	roots, err := Build(lines)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	first := Aggregate(roots, lines)
	second := Aggregate(roots, lines)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("aggregation is not repeatable (-first +second):\n%s", diff)
	}
}

func TestAggregate_Empty(t *testing.T) {
	res := Aggregate(nil, nil)
	if !res.IsSuccess {
		t.Errorf("an empty trace is successful")
	}
}

func TestProcess_NonBase58ProgramIds(t *testing.T) {
	res := mustProcess(t, []string{
		"Program prog_a invoke [1]",
		"Program log: hello",
		"Program prog-b.v2 invoke [2]",
		"Program prog-b.v2 failed: custom program error: 0x1",
		"Program prog_a failed: custom program error: 0x1",
	})
	if res.IsSuccess {
		t.Fatalf("expected failure")
	}
	if res.FailedProgram == nil || *res.FailedProgram != "prog-b.v2" {
		t.Errorf("expected prog-b.v2 to be blamed, got %v", res.FailedProgram)
	}
	if got := res.RootCalls[0].Messages[1]; got.Category != CategoryMessage || got.Content != "hello" {
		t.Errorf("expected log message, got %s %q", got.Category, got.Content)
	}

	res = mustProcess(t, []string{"Program prog_a invoke [1]", "Program prog_a success"})
	if !res.IsSuccess {
		t.Errorf("expected success")
	}
}

func TestProcessTransaction(t *testing.T) {
	lines := []string{"Program P1 invoke [1]", "Program P1 success"}
	res, err := ProcessTransaction("sig", lines, DefaultMaxLines)
	if err != nil {
		t.Fatalf("ProcessTransaction: %v", err)
	}
	if res.Signature == nil || *res.Signature != "sig" {
		t.Errorf("expected signature to be set, got %v", res.Signature)
	}
	res, err = ProcessTransaction("", lines, DefaultMaxLines)
	if err != nil {
		t.Fatalf("ProcessTransaction: %v", err)
	}
	if res.Signature != nil {
		t.Errorf("expected no signature")
	}
}

func TestTransactionTrace_Programs(t *testing.T) {
	res := mustProcess(t, []string{
		"Program " + budgetProgram + " invoke [1]",
		"Program " + budgetProgram + " success",
		"Program " + testProgram + " invoke [1]",
		"Program " + systemProgram + " invoke [2]",
		"Program " + systemProgram + " success",
		"Program " + systemProgram + " invoke [2]",
		"Program " + systemProgram + " success",
		"Program " + testProgram + " success",
	})
	want := []ProgramId{budgetProgram, testProgram, systemProgram}
	if diff := cmp.Diff(want, res.Programs()); diff != "" {
		t.Errorf("programs (-want +got):\n%s", diff)
	}
	if res.MaxDepth() != 2 {
		t.Errorf("expected depth 2, got %d", res.MaxDepth())
	}
}
