package index

import (
	"reflect"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
	"github.com/kdimentionaltree/sol-trace-go/trace"
)

// converters
func SignatureConverter(value string) reflect.Value {
	if sig, err := solana.SignatureFromBase58(value); err == nil {
		return reflect.ValueOf(SignatureType(sig.String()))
	}
	return reflect.Value{}
}

func ProgramIdConverter(value string) reflect.Value {
	if key, err := solana.PublicKeyFromBase58(value); err == nil {
		return reflect.ValueOf(ProgramIdType(key.String()))
	}
	return reflect.Value{}
}

func TraceStateConverter(value string) reflect.Value {
	switch TraceState(value) {
	case TraceStateOk, TraceStateMalformed:
		return reflect.ValueOf(TraceState(value))
	}
	return reflect.Value{}
}

// query to model
func ScanTransactionLogs(row pgx.Row, with_logs bool) (*TransactionLogs, error) {
	var t TransactionLogs
	var slot *int64
	var error_hex *string
	var error_value *int64
	var programs []string

	dest := []any{&t.Signature, &slot}
	if with_logs {
		dest = append(dest, &t.LogMessages)
	}
	dest = append(dest, &t.TraceState, &t.TraceError, &t.IsSuccess,
		&error_hex, &error_value, &t.ErrorMessage, &programs)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if slot != nil {
		v := uint64(*slot)
		t.Slot = &v
	}
	if error_hex != nil && error_value != nil {
		t.ErrorCode = &trace.ErrorCode{Hex: *error_hex, Value: uint64(*error_value)}
	}
	t.Programs = make([]trace.ProgramId, 0, len(programs))
	for _, p := range programs {
		t.Programs = append(t.Programs, trace.ProgramId(p))
	}
	return &t, nil
}
