package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/epsilon/pkg/accountant"
	"mercator-hq/epsilon/pkg/config"
	"mercator-hq/epsilon/pkg/guard"
	"mercator-hq/epsilon/pkg/ledger"
	"mercator-hq/epsilon/pkg/ledger/recorder"
	"mercator-hq/epsilon/pkg/ledger/storage"
	"mercator-hq/epsilon/pkg/mechanism"
	"mercator-hq/epsilon/pkg/server/types"
	"mercator-hq/epsilon/pkg/telemetry/logging"
)

type testServer struct {
	acct  *accountant.Accountant
	store *storage.MemoryStorage
	mux   *http.ServeMux
}

func newTestServer(t *testing.T, opts ...accountant.Option) *testServer {
	t.Helper()

	engine, err := mechanism.NewNoiseEngine(mechanism.NoiseConfig{})
	if err != nil {
		t.Fatal(err)
	}
	store := storage.NewMemoryStorage(100)
	rec := recorder.NewRecorder(store, nil)
	opts = append([]accountant.Option{accountant.WithJournal(rec)}, opts...)

	acct, err := accountant.New(context.Background(), engine, map[string][]float64{
		"age":    {10, 20, 30, 40},
		"income": {100, 200, 300, 400},
	}, opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = acct.Close() })

	mux := http.NewServeMux()
	New(acct, Options{Ledger: store, MaxBodyBytes: 1024}).Register(mux)
	return &testServer{acct: acct, store: store, mux: mux}
}

// waitForEntries polls until the async recorder has stored n entries.
func (s *testServer) waitForEntries(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.store.Size() < n {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d ledger entries, got %d", n, s.store.Size())
		}
		time.Sleep(time.Millisecond)
	}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("Failed to decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestMean(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/v1/mean", `{"cost": 0.65, "column": "age", "lower": 0, "upper": 40, "n": 4}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decodeBody[types.ReleaseResponse](t, w)
	if resp.Value < 0 || resp.Value > 40 {
		t.Errorf("Expected value within bounds, got %v", resp.Value)
	}
	if resp.Used != 0.65 {
		t.Errorf("Expected used 0.65, got %v", resp.Used)
	}

	w = s.do(http.MethodPost, "/v1/mean", `{"cost": 40, "column": "age", "lower": 0, "upper": 40}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp = decodeBody[types.ReleaseResponse](t, w)
	if resp.Used != 10 || resp.Remaining != 0 {
		t.Errorf("Expected used 10 remaining 0, got %v %v", resp.Used, resp.Remaining)
	}

	w = s.do(http.MethodPost, "/v1/mean", `{"cost": 1, "lower": 0, "upper": 40}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d", w.Code)
	}
	if e := decodeBody[types.ErrorResponse](t, w); e.Error.Type != types.ErrorTypeBudgetExhausted {
		t.Errorf("Expected budget_exhausted, got %s", e.Error.Type)
	}
}

func TestErrorStatuses(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		want     int
		wantType string
	}{
		{"bad JSON", http.MethodPost, "/v1/mean", `{"cost":`, http.StatusBadRequest, types.ErrorTypeInvalidRequest},
		{"empty body", http.MethodPost, "/v1/count", ``, http.StatusBadRequest, types.ErrorTypeInvalidRequest},
		{"unknown field", http.MethodPost, "/v1/count", `{"cost": 1, "epsilon": 2}`, http.StatusBadRequest, types.ErrorTypeInvalidRequest},
		{"zero cost", http.MethodPost, "/v1/count", `{"cost": 0}`, http.StatusBadRequest, types.ErrorTypeInvalidRequest},
		{"bad bounds", http.MethodPost, "/v1/mean", `{"cost": 1, "lower": 5, "upper": 1}`, http.StatusBadRequest, types.ErrorTypeInvalidRequest},
		{"unknown source", http.MethodPost, "/v1/count", `{"cost": 1, "source": "raw"}`, http.StatusBadRequest, types.ErrorTypeInvalidRequest},
		{"unknown column", http.MethodPost, "/v1/mean", `{"cost": 1, "column": "zip", "lower": 0, "upper": 1}`, http.StatusUnprocessableEntity, types.ErrorTypeMechanism},
		{"short mask", http.MethodPost, "/v1/filter", `{"mask": [true]}`, http.StatusUnprocessableEntity, types.ErrorTypeMechanism},
		{"missing mask", http.MethodPost, "/v1/filter", `{}`, http.StatusBadRequest, types.ErrorTypeInvalidRequest},
		{"body too large", http.MethodPost, "/v1/filter", `{"mask": [` + strings.Repeat("true,", 400) + `true]}`, http.StatusRequestEntityTooLarge, types.ErrorTypeRequestTooLarge},
		{"bad limit", http.MethodGet, "/v1/ledger?limit=-2", ``, http.StatusBadRequest, types.ErrorTypeInvalidRequest},
		{"bad order", http.MethodGet, "/v1/ledger?order=sideways", ``, http.StatusBadRequest, types.ErrorTypeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			w := s.do(tt.method, tt.path, tt.body)
			if w.Code != tt.want {
				t.Fatalf("Expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
			if e := decodeBody[types.ErrorResponse](t, w); e.Error.Type != tt.wantType {
				t.Errorf("Expected type %s, got %s", tt.wantType, e.Error.Type)
			}
			if s.acct.Used() != 0 {
				t.Errorf("Expected no budget consumed, used %v", s.acct.Used())
			}
		})
	}
}

func TestFilterAndCount(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/v1/filter", `{"mask": [true, false, true, true], "column": "income"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !decodeBody[types.FilterResponse](t, w).OK {
		t.Error("Expected ok filter response")
	}
	if s.acct.Used() != 0 {
		t.Errorf("Expected filter to consume nothing, used %v", s.acct.Used())
	}

	w = s.do(http.MethodPost, "/v1/count", `{"cost": 2, "source": "filtered"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decodeBody[types.ReleaseResponse](t, w)
	if resp.Used != 2 || resp.Remaining != 8 {
		t.Errorf("Expected used 2 remaining 8, got %v %v", resp.Used, resp.Remaining)
	}
}

func TestReset(t *testing.T) {
	s := newTestServer(t, accountant.WithAdmin(accountant.AdminConfig{DebugMode: true, DebugPassword: "pw"}))

	if w := s.do(http.MethodPost, "/v1/count", `{"cost": 3}`); w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	w := s.do(http.MethodPost, "/v1/reset", `{"credential": "wrong"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected refused reset to be 200, got %d", w.Code)
	}
	if res := decodeBody[accountant.ResetResult](t, w); res.OK {
		t.Error("Expected reset to be refused")
	}
	if s.acct.Used() != 3 {
		t.Errorf("Expected used 3, got %v", s.acct.Used())
	}

	w = s.do(http.MethodPost, "/v1/reset", `{"credential": "pw"}`)
	if res := decodeBody[accountant.ResetResult](t, w); !res.OK {
		t.Errorf("Expected reset to succeed, got %q", res.Message)
	}
	if s.acct.Used() != 0 {
		t.Errorf("Expected used 0, got %v", s.acct.Used())
	}
}

func TestBudget(t *testing.T) {
	s := newTestServer(t, accountant.WithTotalBudget(5))

	w := s.do(http.MethodGet, "/v1/budget", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	snap := decodeBody[accountant.Snapshot](t, w)
	if snap.Total != 5 || snap.Used != 0 || snap.Remaining != 5 || snap.Exhausted {
		t.Errorf("Unexpected snapshot %+v", snap)
	}
	if strings.Contains(w.Body.String(), "10") {
		t.Errorf("Budget response should not contain dataset values: %s", w.Body.String())
	}

	if w := s.do(http.MethodPost, "/v1/budget", ""); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", w.Code)
	}
}

func TestLedger(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 3; i++ {
		if w := s.do(http.MethodPost, "/v1/count", `{"cost": 1}`); w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", w.Code)
		}
	}
	s.acct.Reset("nothing")
	s.waitForEntries(t, 4)

	w := s.do(http.MethodGet, "/v1/ledger?limit=2", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decodeBody[types.LedgerResponse](t, w)
	if len(resp.Entries) != 2 {
		t.Errorf("Expected 2 entries, got %d", len(resp.Entries))
	}
	if resp.Total != 4 {
		t.Errorf("Expected total 4, got %d", resp.Total)
	}

	w = s.do(http.MethodGet, "/v1/ledger?outcome=refused", "")
	resp = decodeBody[types.LedgerResponse](t, w)
	if resp.Total != 1 || len(resp.Entries) != 1 || resp.Entries[0].Outcome != ledger.OutcomeRefused {
		t.Errorf("Expected one refused entry, got %+v", resp)
	}
}

func TestLedger_NoStorage(t *testing.T) {
	engine, _ := mechanism.NewNoiseEngine(mechanism.NoiseConfig{})
	acct, err := accountant.New(context.Background(), engine, []float64{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	defer acct.Close()

	mux := http.NewServeMux()
	New(acct, Options{}).Register(mux)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/ledger", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"entries":[]`) {
		t.Errorf("Expected empty entries, got %s", w.Body.String())
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"exhausted", fmt.Errorf("wrapped: %w", accountant.ErrBudgetExhausted), http.StatusConflict},
		{"invalid cost", &accountant.InvalidCostError{Op: "mean", Cost: -1}, http.StatusBadRequest},
		{"protected", &guard.ProtectedAccessError{Field: "dataset", Op: "read"}, http.StatusForbidden},
		{"mechanism", &mechanism.Error{Op: mechanism.OpMean, Cause: mechanism.ErrInvalidParams}, http.StatusUnprocessableEntity},
		{"closed", accountant.ErrClosed, http.StatusServiceUnavailable},
		{"deadline", &mechanism.Error{Op: mechanism.OpMean, Cause: context.DeadlineExceeded}, http.StatusGatewayTimeout},
		{"storage", ledger.NewStorageError("sqlite", "query", fmt.Errorf("disk I/O error")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := errorResponse(tt.err)
			if got := resp.Error.HTTPStatusCode(); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}

	resp := errorResponse(ledger.NewStorageError("sqlite", "query", fmt.Errorf("secret path /var/db")))
	if strings.Contains(resp.Error.Message, "secret") {
		t.Error("Internal errors should not reach the client")
	}
}

func TestRecordsRequestIDInLedger(t *testing.T) {
	s := newTestServer(t)
	handler := http.Handler(s.mux)

	req := httptest.NewRequest(http.MethodPost, "/v1/count", strings.NewReader(`{"cost": 1}`))
	req = req.WithContext(logging.WithRequestID(req.Context(), "req-42"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	s.waitForEntries(t, 1)
	entries, err := s.store.Query(context.Background(), &ledger.Query{})
	if err != nil || len(entries) != 1 {
		t.Fatalf("Expected one entry, got %v %v", entries, err)
	}
	if entries[0].RequestID != "req-42" {
		t.Errorf("Expected request ID req-42, got %q", entries[0].RequestID)
	}
}
