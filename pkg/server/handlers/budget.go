package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"mercator-hq/epsilon/pkg/accountant"
	"mercator-hq/epsilon/pkg/config"
	"mercator-hq/epsilon/pkg/ledger"
	"mercator-hq/epsilon/pkg/server/types"
)

// DefaultMaxBodyBytes is used when Options.MaxBodyBytes is zero.
const DefaultMaxBodyBytes = 10 * 1024 * 1024

// Options configures Handlers.
type Options struct {
	// Ledger backs GET /v1/ledger. Nil serves an empty list.
	Ledger ledger.Storage

	// Query bounds ledger page sizes.
	Query config.QueryConfig

	// MaxBodyBytes limits request bodies.
	MaxBodyBytes int64

	Logger *slog.Logger
}

// Handlers serves the accountant over HTTP.
type Handlers struct {
	accountant *accountant.Accountant
	ledger     ledger.Storage
	query      config.QueryConfig
	maxBody    int64
	logger     *slog.Logger
}

// New returns the handlers for acct.
func New(acct *accountant.Accountant, opts Options) *Handlers {
	h := &Handlers{
		accountant: acct,
		ledger:     opts.Ledger,
		query:      opts.Query,
		maxBody:    opts.MaxBodyBytes,
		logger:     opts.Logger,
	}
	if h.maxBody <= 0 {
		h.maxBody = DefaultMaxBodyBytes
	}
	if h.query.DefaultLimit <= 0 {
		h.query.DefaultLimit = config.DefaultLedgerQueryDefaultLimit
	}
	if h.query.MaxLimit <= 0 {
		h.query.MaxLimit = config.DefaultLedgerQueryMaxLimit
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	h.logger = h.logger.With("component", "api")
	return h
}

// Register adds the API routes to mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/mean", h.Mean)
	mux.HandleFunc("POST /v1/count", h.Count)
	mux.HandleFunc("POST /v1/filter", h.Filter)
	mux.HandleFunc("POST /v1/reset", h.Reset)
	mux.HandleFunc("GET /v1/budget", h.Budget)
	mux.HandleFunc("GET /v1/ledger", h.Ledger)
}

// Mean handles POST /v1/mean.
func (h *Handlers) Mean(w http.ResponseWriter, r *http.Request) {
	var req types.MeanRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	v, err := h.accountant.Mean(r.Context(), req.Cost, target(req.Source, req.Column), accountant.MeanParams{
		Lower: req.Lower,
		Upper: req.Upper,
		N:     req.N,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.writeRelease(w, v)
}

// Count handles POST /v1/count.
func (h *Handlers) Count(w http.ResponseWriter, r *http.Request) {
	var req types.CountRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	n, err := h.accountant.Count(r.Context(), target(req.Source, req.Column), req.Cost, accountant.CountParams{})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.writeRelease(w, float64(n))
}

// Filter handles POST /v1/filter.
func (h *Handlers) Filter(w http.ResponseWriter, r *http.Request) {
	var req types.FilterRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var opts accountant.FilterOptions
	if req.Column != "" {
		opts.Columns = []string{req.Column}
	}
	if err := h.accountant.Filter(r.Context(), req.Mask, opts); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, types.FilterResponse{OK: true})
}

// Reset handles POST /v1/reset. A refused reset is still a 200; the body
// says whether it succeeded.
func (h *Handlers) Reset(w http.ResponseWriter, r *http.Request) {
	var req types.ResetRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.accountant.ResetContext(r.Context(), req.Credential))
}

// Budget handles GET /v1/budget.
func (h *Handlers) Budget(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.accountant.Snapshot())
}

// Ledger handles GET /v1/ledger. Query parameters: limit, offset, operation,
// outcome and order (asc or desc).
func (h *Handlers) Ledger(w http.ResponseWriter, r *http.Request) {
	q, err := h.ledgerQuery(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if h.ledger == nil {
		writeJSON(w, http.StatusOK, types.LedgerResponse{Entries: []*ledger.Entry{}})
		return
	}

	entries, err := h.ledger.Query(r.Context(), q)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	total, err := h.ledger.Count(r.Context(), &ledger.Query{Operation: q.Operation, Outcome: q.Outcome})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if entries == nil {
		entries = []*ledger.Entry{}
	}
	writeJSON(w, http.StatusOK, types.LedgerResponse{Entries: entries, Total: total})
}

func (h *Handlers) ledgerQuery(r *http.Request) (*ledger.Query, error) {
	v := r.URL.Query()
	q := &ledger.Query{
		Operation: v.Get("operation"),
		Outcome:   ledger.Outcome(v.Get("outcome")),
		Limit:     h.query.DefaultLimit,
	}

	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return nil, &types.ValidationError{Field: "limit", Message: "limit must be a positive integer"}
		}
		q.Limit = min(n, h.query.MaxLimit)
	}
	if s := v.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return nil, &types.ValidationError{Field: "offset", Message: "offset must be a non-negative integer"}
		}
		q.Offset = n
	}
	switch order := v.Get("order"); order {
	case "", "desc", "asc":
		q.SortOrder = order
	default:
		return nil, &types.ValidationError{Field: "order", Message: "order must be asc or desc"}
	}
	return q, nil
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, h.maxBody)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &types.ValidationError{Field: "body", Message: "request body is empty"}
		}
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return &types.ValidationError{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	return nil
}

func (h *Handlers) writeRelease(w http.ResponseWriter, value float64) {
	snap := h.accountant.Snapshot()
	writeJSON(w, http.StatusOK, types.ReleaseResponse{
		Value:     value,
		Used:      snap.Used,
		Remaining: snap.Remaining,
	})
}

func target(source, column string) accountant.Target {
	return accountant.Target{Source: accountant.Source(source), Column: column}
}
