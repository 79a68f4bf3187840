package index

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

const transactionLogsColumns = `signature, slot, trace_state, trace_error, is_success, error_code, error_value, error_message, programs`
const transactionLogsColumnsWithLogs = `signature, slot, log_messages, trace_state, trace_error, is_success, error_code, error_value, error_message, programs`

func getSortOrder(order SortType) (string, error) {
	switch strings.ToLower(string(order)) {
	case "desc", "d":
		return "desc", nil
	case "asc", "a":
		return "asc", nil
	}
	return "", IndexError{Code: 422, Message: "wrong value for sort parameter"}
}

// query builders
func limitQuery(lim LimitRequest, settings RequestSettings) (string, error) {
	query := ``
	if lim.Limit == nil {
		// set default value
		lim.Limit = new(int32)
		*lim.Limit = int32(settings.DefaultLimit)
	}
	if lim.Limit != nil {
		limit := max(1, *lim.Limit)
		if settings.MaxLimit > 0 && limit > int32(settings.MaxLimit) {
			return "", IndexError{Code: 422, Message: fmt.Sprintf("limit is not allowed: %d > %d", limit, settings.MaxLimit)}
		}
		query += fmt.Sprintf(" limit %d", limit)
	}
	if lim.Offset != nil {
		offset := max(0, *lim.Offset)
		query += fmt.Sprintf(" offset %d", offset)
	}
	return query, nil
}

type queryArgs []any

// add appends a value and returns its placeholder.
func (a *queryArgs) add(v any) string {
	*a = append(*a, v)
	return fmt.Sprintf("$%d", len(*a))
}

func buildTransactionLogsQuery(
	logs_req TransactionLogsRequest,
	slot_req SlotRequest,
	lim_req LimitRequest,
	settings RequestSettings,
) (string, []any, error) {
	query := `select ` + transactionLogsColumns + ` from transaction_logs`
	args := queryArgs{}
	filter_list := []string{}
	filter_query := ``
	orderby_query := ``
	limit_query, err := limitQuery(lim_req, settings)
	if err != nil {
		return ``, nil, err
	}

	// filters
	if v := logs_req.Signature; len(v) == 1 {
		filter_list = append(filter_list, "signature = "+args.add(string(v[0])))
	} else if len(v) > 1 {
		vv := make([]string, 0, len(v))
		for _, x := range v {
			vv = append(vv, string(x))
		}
		filter_list = append(filter_list, "signature = any("+args.add(vv)+")")
	}
	if v := logs_req.Program; v != nil {
		filter_list = append(filter_list, args.add(string(*v))+" = any(programs)")
	}
	if v := logs_req.IsSuccess; v != nil {
		filter_list = append(filter_list, "is_success = "+args.add(*v))
	}
	if v := logs_req.State; v != nil {
		filter_list = append(filter_list, "trace_state = "+args.add(string(*v)))
	}
	if v := slot_req.StartSlot; v != nil {
		filter_list = append(filter_list, "slot >= "+args.add(int64(*v)))
	}
	if v := slot_req.EndSlot; v != nil {
		filter_list = append(filter_list, "slot <= "+args.add(int64(*v)))
	}

	if v := lim_req.Sort; v != nil {
		sort_order, err := getSortOrder(*v)
		if err != nil {
			return ``, nil, err
		}
		orderby_query = fmt.Sprintf(" order by slot %s, signature %s", sort_order, sort_order)
	}

	// build query
	if len(filter_list) > 0 {
		filter_query = ` where ` + strings.Join(filter_list, " and ")
	}

	query += filter_query
	query += orderby_query
	query += limit_query
	return query, args, nil
}

func (db *DbClient) QueryTransactionLogs(
	ctx context.Context,
	logs_req TransactionLogsRequest,
	slot_req SlotRequest,
	lim_req LimitRequest,
	settings RequestSettings,
) ([]TransactionLogs, error) {
	query, args, err := buildTransactionLogsQuery(logs_req, slot_req, lim_req, settings)
	db.logQuery(query, args, settings)
	if err != nil {
		return nil, err
	}

	ctx, cancel_ctx := context.WithTimeout(ctx, settings.Timeout)
	defer cancel_ctx()

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, IndexError{Code: 500, Message: err.Error()}
	}
	defer rows.Close()

	res := []TransactionLogs{}
	for rows.Next() {
		row, err := ScanTransactionLogs(rows, false)
		if err != nil {
			return nil, IndexError{Code: 500, Message: err.Error()}
		}
		res = append(res, *row)
	}
	if rows.Err() != nil {
		return nil, IndexError{Code: 500, Message: rows.Err().Error()}
	}
	return res, nil
}

// GetTransactionLogs loads the stored row of one transaction, log lines
// included.
func (db *DbClient) GetTransactionLogs(ctx context.Context, signature SignatureType, settings RequestSettings) (*TransactionLogs, error) {
	ctx, cancel_ctx := context.WithTimeout(ctx, settings.Timeout)
	defer cancel_ctx()

	query := `select ` + transactionLogsColumnsWithLogs + ` from transaction_logs where signature = $1`
	res, err := ScanTransactionLogs(db.Pool.QueryRow(ctx, query, string(signature)), true)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, IndexError{Code: 404, Message: fmt.Sprintf("transaction %s not found", signature)}
	}
	if err != nil {
		return nil, IndexError{Code: 500, Message: err.Error()}
	}
	return res, nil
}

func summaryArgs(s TraceSummary) []any {
	var error_hex *string
	var error_value *int64
	if s.ErrorCode != nil {
		hex := s.ErrorCode.Hex
		value := int64(s.ErrorCode.Value)
		error_hex, error_value = &hex, &value
	}
	programs := make([]string, 0, len(s.Programs))
	for _, p := range s.Programs {
		programs = append(programs, string(p))
	}
	return []any{string(s.TraceState), s.TraceError, s.IsSuccess, error_hex, error_value, s.ErrorMessage, programs}
}

// UpsertTransactionLogs stores the log lines of a transaction with their
// summary, replacing a previous row of the same signature.
func (db *DbClient) UpsertTransactionLogs(ctx context.Context, row TransactionLogs, settings RequestSettings) error {
	ctx, cancel_ctx := context.WithTimeout(ctx, settings.Timeout)
	defer cancel_ctx()

	var slot *int64
	if row.Slot != nil {
		v := int64(*row.Slot)
		slot = &v
	}
	query := `insert into transaction_logs(` + transactionLogsColumnsWithLogs + `)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		on conflict (signature) do update set
			slot = excluded.slot,
			log_messages = excluded.log_messages,
			trace_state = excluded.trace_state,
			trace_error = excluded.trace_error,
			is_success = excluded.is_success,
			error_code = excluded.error_code,
			error_value = excluded.error_value,
			error_message = excluded.error_message,
			programs = excluded.programs`
	args := append([]any{string(row.Signature), slot, row.LogMessages}, summaryArgs(row.TraceSummary)...)
	if _, err := db.Pool.Exec(ctx, query, args...); err != nil {
		return IndexError{Code: 500, Message: err.Error()}
	}
	return nil
}

// UpdateTraceSummaries rewrites the summary columns of already stored rows.
func (db *DbClient) UpdateTraceSummaries(ctx context.Context, summaries map[SignatureType]TraceSummary) (int64, error) {
	batch := &pgx.Batch{}
	query := `update transaction_logs set trace_state = $2, trace_error = $3, is_success = $4,
		error_code = $5, error_value = $6, error_message = $7, programs = $8 where signature = $1`
	for signature, summary := range summaries {
		batch.Queue(query, append([]any{string(signature)}, summaryArgs(summary)...)...)
	}
	results := db.Pool.SendBatch(ctx, batch)
	defer results.Close()

	var affected int64
	for range summaries {
		tag, err := results.Exec()
		if err != nil {
			return affected, err
		}
		affected += tag.RowsAffected()
	}
	return affected, nil
}

// ScanSignatures streams the signatures of stored rows, optionally only those
// in the given trace state, in batches of batch_size.
func (db *DbClient) ScanSignatures(ctx context.Context, state *TraceState, batch_size int, fn func([]SignatureType) error) error {
	query := `select signature from transaction_logs`
	args := queryArgs{}
	if state != nil {
		query += ` where trace_state = ` + args.add(string(*state))
	}
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	batch := []SignatureType{}
	for rows.Next() {
		var signature string
		if err := rows.Scan(&signature); err != nil {
			return err
		}
		batch = append(batch, SignatureType(signature))
		if len(batch) >= batch_size {
			if err := fn(batch); err != nil {
				return err
			}
			batch = []SignatureType{}
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return fn(batch)
	}
	return nil
}

// QueryLogMessages loads the raw log lines of the given transactions.
func (db *DbClient) QueryLogMessages(ctx context.Context, signatures []SignatureType) (map[SignatureType][]string, error) {
	vv := make([]string, 0, len(signatures))
	for _, s := range signatures {
		vv = append(vv, string(s))
	}
	rows, err := db.Pool.Query(ctx, `select signature, log_messages from transaction_logs where signature = any($1)`, vv)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := map[SignatureType][]string{}
	for rows.Next() {
		var signature string
		var lines []string
		if err := rows.Scan(&signature, &lines); err != nil {
			return nil, err
		}
		res[SignatureType(signature)] = lines
	}
	return res, rows.Err()
}

func (db *DbClient) CountTransactionLogs(ctx context.Context, state *TraceState) (int, error) {
	query := `select count(*) from transaction_logs`
	args := queryArgs{}
	if state != nil {
		query += ` where trace_state = ` + args.add(string(*state))
	}
	var total int
	err := db.Pool.QueryRow(ctx, query, args...).Scan(&total)
	return total, err
}
