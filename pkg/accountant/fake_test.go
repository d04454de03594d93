package accountant

import (
	"context"
	"errors"
	"sync"
	"time"

	"mercator-hq/epsilon/pkg/dataset"
	"mercator-hq/epsilon/pkg/ledger"
	"mercator-hq/epsilon/pkg/mechanism"
	"mercator-hq/epsilon/pkg/telemetry/logging"
)

// fakeEngine computes exact statistics without noise and lets tests choose
// the usage it reports and the step that fails.
type fakeEngine struct {
	mu       sync.Mutex
	datasets map[uint64]*dataset.Dataset
	nextID   uint64

	// report, if set, replaces the usage descriptor of each release.
	report func(req mechanism.Request) string

	beginErr  error
	filterErr error
	submitErr error
	commitErr error

	submitted []mechanism.Request
	aborted   int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{datasets: make(map[uint64]*dataset.Dataset)}
}

func (e *fakeEngine) Begin(ctx context.Context) (mechanism.Session, error) {
	if e.beginErr != nil {
		return nil, e.beginErr
	}
	return &fakeSession{engine: e}, nil
}

func (e *fakeEngine) store(ds *dataset.Dataset) mechanism.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	e.datasets[e.nextID] = ds
	return mechanism.NewHandle(e.nextID)
}

func (e *fakeEngine) lookup(h mechanism.Handle) (*dataset.Dataset, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ds, ok := e.datasets[h.ID()]
	if !ok {
		return nil, mechanism.ErrUnknownHandle
	}
	return ds, nil
}

func (e *fakeEngine) remove(hs []mechanism.Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, h := range hs {
		delete(e.datasets, h.ID())
	}
}

func (e *fakeEngine) size() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.datasets)
}

func (e *fakeEngine) submissions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.submitted)
}

type fakePending struct {
	req     mechanism.Request
	release *mechanism.Release
}

type fakeSession struct {
	engine    *fakeEngine
	pending   []fakePending
	transient []mechanism.Handle
	dropped   []mechanism.Handle
}

func (s *fakeSession) Load(ds *dataset.Dataset) (mechanism.Handle, error) {
	return s.engine.store(ds), nil
}

func (s *fakeSession) ToFloat(h mechanism.Handle, column string) (mechanism.Handle, error) {
	ds, err := s.engine.lookup(h)
	if err != nil {
		return mechanism.Handle{}, err
	}
	col, err := ds.Select(column)
	if err != nil {
		return mechanism.Handle{}, err
	}
	f, err := col.MapFloat()
	if err != nil {
		return mechanism.Handle{}, err
	}
	fh := s.engine.store(f)
	s.transient = append(s.transient, fh)
	return fh, nil
}

func (s *fakeSession) Drop(h mechanism.Handle) error {
	if _, err := s.engine.lookup(h); err != nil {
		return err
	}
	s.dropped = append(s.dropped, h)
	return nil
}

func (s *fakeSession) Filter(h mechanism.Handle, mask []bool, opts mechanism.FilterOptions) (mechanism.Handle, error) {
	if s.engine.filterErr != nil {
		return mechanism.Handle{}, s.engine.filterErr
	}
	ds, err := s.engine.lookup(h)
	if err != nil {
		return mechanism.Handle{}, err
	}
	view, err := ds.Where(mask)
	if err != nil {
		return mechanism.Handle{}, err
	}
	if len(opts.Columns) == 1 {
		if view, err = view.Select(opts.Columns[0]); err != nil {
			return mechanism.Handle{}, err
		}
	}
	return s.engine.store(view), nil
}

func (s *fakeSession) Submit(req mechanism.Request) (*mechanism.Release, error) {
	if s.engine.submitErr != nil {
		return nil, s.engine.submitErr
	}
	s.engine.mu.Lock()
	s.engine.submitted = append(s.engine.submitted, req)
	s.engine.mu.Unlock()

	rel := mechanism.NewRelease(req.Op)
	s.pending = append(s.pending, fakePending{req: req, release: rel})
	return rel, nil
}

func (s *fakeSession) End() error { return nil }

func (s *fakeSession) Commit(ctx context.Context) error {
	for _, p := range s.pending {
		if s.engine.commitErr != nil {
			p.release.Settle(nil, "", s.engine.commitErr)
			continue
		}
		value, err := s.evaluate(p.req)
		usage := p.req.Usage.Descriptor()
		if s.engine.report != nil {
			usage = s.engine.report(p.req)
		}
		p.release.Settle(value, usage, err)
	}
	s.pending = nil
	s.engine.remove(s.transient)
	if s.engine.commitErr == nil {
		s.engine.remove(s.dropped)
	}
	s.transient, s.dropped = nil, nil
	return s.engine.commitErr
}

func (s *fakeSession) Abort() {
	s.engine.mu.Lock()
	s.engine.aborted++
	s.engine.mu.Unlock()
	s.pending = nil
	s.engine.remove(s.transient)
	s.transient, s.dropped = nil, nil
}

func (s *fakeSession) evaluate(req mechanism.Request) (any, error) {
	ds, err := s.engine.lookup(req.Data)
	if err != nil {
		return nil, err
	}
	switch req.Op {
	case mechanism.OpCount:
		return int64(ds.Rows()), nil
	case mechanism.OpMean, mechanism.OpSum:
		fs, err := ds.Floats(req.Column)
		if err != nil {
			return nil, err
		}
		var sum float64
		for _, f := range fs {
			sum += f
		}
		if req.Op == mechanism.OpSum {
			return sum, nil
		}
		if len(fs) == 0 {
			return 0.0, nil
		}
		return sum / float64(len(fs)), nil
	default:
		return nil, mechanism.ErrUnsupportedOperation
	}
}

// fakeMetrics records every accountant metric call.
type fakeMetrics struct {
	mu          sync.Mutex
	releases    map[string]int
	clamps      int
	overReports []float64
	resets      []bool
	used, total float64
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{releases: make(map[string]int)}
}

func (m *fakeMetrics) RecordRelease(op, outcome string, recorded float64, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releases[op+"/"+outcome]++
}

func (m *fakeMetrics) RecordClamp(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clamps++
}

func (m *fakeMetrics) RecordOverReport(op string, excess float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overReports = append(m.overReports, excess)
}

func (m *fakeMetrics) UpdateBudget(used, total float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.used, m.total = used, total
}

func (m *fakeMetrics) RecordReset(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets = append(m.resets, ok)
}

// memJournal keeps entries in memory and can be told to fail.
type memJournal struct {
	mu      sync.Mutex
	entries []*ledger.Entry
	err     error
	closed  bool
}

func (j *memJournal) Record(ctx context.Context, e *ledger.Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.entries = append(j.entries, e)
	return nil
}

func (j *memJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.closed = true
	return nil
}

func (j *memJournal) outcomes() []ledger.Outcome {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]ledger.Outcome, len(j.entries))
	for i, e := range j.entries {
		out[i] = e.Outcome
	}
	return out
}

var errEngine = errors.New("engine failure")

func loggingContext(requestID string) context.Context {
	return logging.WithRequestID(context.Background(), requestID)
}
