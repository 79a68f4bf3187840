package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/kdimentionaltree/sol-trace-go/cache"
	"github.com/kdimentionaltree/sol-trace-go/trace"
	"github.com/sirupsen/logrus"
)

// LogStore persists raw transaction logs with their trace summaries.
// DbClient is the production implementation.
type LogStore interface {
	GetTransactionLogs(ctx context.Context, signature SignatureType, settings RequestSettings) (*TransactionLogs, error)
	UpsertTransactionLogs(ctx context.Context, row TransactionLogs, settings RequestSettings) error
	QueryTransactionLogs(ctx context.Context, logs_req TransactionLogsRequest, slot_req SlotRequest, lim_req LimitRequest, settings RequestSettings) ([]TransactionLogs, error)
}

// TraceService builds traces from request bodies or stored logs. Cache and
// Events are optional.
type TraceService struct {
	Store    LogStore
	Cache    *cache.Manager
	Events   *cache.Channel[TransactionLogs]
	Logger   *logrus.Logger
	Settings RequestSettings
}

// traceError maps builder errors to request errors.
func traceError(err error) error {
	if errors.Is(err, trace.ErrMalformedTrace) || errors.Is(err, trace.ErrTooManyLines) {
		return IndexError{Code: 422, Message: err.Error()}
	}
	return err
}

func (s *TraceService) maxLines() int {
	if s.Settings.MaxLogLines > 0 {
		return s.Settings.MaxLogLines
	}
	return trace.DefaultMaxLines
}

// ParseLogs builds the trace of log lines given in the request.
func (s *TraceService) ParseLogs(req ParseLogsRequest) (*trace.TransactionTrace, error) {
	if err := req.Validate(s.Settings); err != nil {
		return nil, err
	}
	signature := ""
	if req.Signature != nil {
		signature = *req.Signature
	}
	res, err := trace.ProcessTransaction(signature, req.LogMessages, s.maxLines())
	if err != nil {
		return nil, traceError(err)
	}
	return &res, nil
}

// StoreLogs saves the log lines of a transaction along with the summary of
// its trace. Logs that do not form a valid trace are stored as malformed.
func (s *TraceService) StoreLogs(ctx context.Context, req StoreLogsRequest) (*TransactionLogs, error) {
	if err := req.Validate(s.Settings); err != nil {
		return nil, err
	}
	res, build_err := trace.ProcessTransaction(req.Signature, req.LogMessages, s.maxLines())
	row := TransactionLogs{
		Signature:    SignatureType(req.Signature),
		Slot:         req.Slot,
		LogMessages:  req.LogMessages,
		TraceSummary: NewTraceSummary(&res, build_err),
	}
	if build_err != nil {
		s.Logger.WithFields(logrus.Fields{
			"signature": req.Signature,
		}).WithError(build_err).Warn("storing malformed trace")
	}

	if err := s.Store.UpsertTransactionLogs(ctx, row, s.Settings); err != nil {
		return nil, err
	}
	if s.Cache != nil {
		if err := s.Cache.Traces.Invalidate(ctx, s.Settings.CacheTtl, req.Signature); err != nil {
			s.Logger.WithError(err).WithField("signature", req.Signature).Warn("failed to invalidate cached trace")
		}
	}
	if s.Events != nil {
		event := row
		event.LogMessages = nil
		if _, err := s.Events.Publish(ctx, event); err != nil {
			s.Logger.WithError(err).WithField("channel", s.Events.Name()).Warn("failed to publish trace summary")
		}
	}
	return &row, nil
}

// GetTransactionTraces returns the traces of stored transactions in request
// order. Unknown signatures are skipped; stored logs that are malformed fail
// the request.
func (s *TraceService) GetTransactionTraces(ctx context.Context, signatures []SignatureType) ([]trace.TransactionTrace, error) {
	keys := make([]string, len(signatures))
	for i, sig := range signatures {
		keys[i] = string(sig)
	}

	cached := map[string]trace.TransactionTrace{}
	var versions map[string]int64
	if s.Cache != nil {
		var err error
		cached, err = s.Cache.Traces.MGetEx(ctx, s.Settings.CacheTtl, keys...)
		if err != nil {
			s.Logger.WithError(err).Warn("trace cache lookup failed")
			cached = map[string]trace.TransactionTrace{}
		}
		missing := []string{}
		for _, key := range keys {
			if _, ok := cached[key]; !ok {
				missing = append(missing, key)
			}
		}
		// versions are read before the rows, see Invalidate
		versions, err = s.Cache.Traces.Versions(ctx, missing...)
		if err != nil {
			s.Logger.WithError(err).Warn("trace cache version lookup failed")
			versions = nil
		}
	}

	built := map[string]trace.TransactionTrace{}
	res := make([]trace.TransactionTrace, 0, len(signatures))
	for _, key := range keys {
		if t, ok := cached[key]; ok {
			res = append(res, t)
			continue
		}
		if t, ok := built[key]; ok {
			res = append(res, t)
			continue
		}
		row, err := s.Store.GetTransactionLogs(ctx, SignatureType(key), s.Settings)
		if err != nil {
			var ierr IndexError
			if errors.As(err, &ierr) && ierr.Code == 404 {
				continue
			}
			return nil, err
		}
		t, err := trace.ProcessTransaction(key, row.LogMessages, s.maxLines())
		if err != nil {
			return nil, traceError(fmt.Errorf("transaction %s: %w", key, err))
		}
		built[key] = t
		res = append(res, t)
	}

	for key, t := range built {
		version, ok := versions[key]
		if !ok {
			continue
		}
		stored, err := s.Cache.Traces.SetIfVersion(ctx, key, t, s.Settings.CacheTtl, version)
		if err != nil {
			s.Logger.WithError(err).WithField("signature", key).Warn("failed to cache trace")
		} else if !stored {
			s.Logger.WithField("signature", key).Debug("logs changed while building trace, not cached")
		}
	}
	return res, nil
}

// GetTransactionTrace returns 404 if the transaction is not stored.
func (s *TraceService) GetTransactionTrace(ctx context.Context, signature SignatureType) (*trace.TransactionTrace, error) {
	res, err := s.GetTransactionTraces(ctx, []SignatureType{signature})
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, IndexError{Code: 404, Message: fmt.Sprintf("transaction %s not found", signature)}
	}
	return &res[0], nil
}

func (s *TraceService) QueryTransactionLogs(ctx context.Context, logs_req TransactionLogsRequest, slot_req SlotRequest, lim_req LimitRequest) ([]TransactionLogs, error) {
	return s.Store.QueryTransactionLogs(ctx, logs_req, slot_req, lim_req, s.Settings)
}
