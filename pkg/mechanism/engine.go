package mechanism

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/google/differential-privacy/go/noise"

	"mercator-hq/epsilon/pkg/dataset"
)

// MinEpsilon is the smallest epsilon the noise library accepts.
const MinEpsilon = 1.0 / (1 << 50)

// NoiseKind selects the noise distribution.
type NoiseKind string

// Supported noise kinds.
const (
	Laplace  NoiseKind = "laplace"
	Gaussian NoiseKind = "gaussian"
)

// NoiseConfig configures a NoiseEngine.
type NoiseConfig struct {
	// Kind is the noise distribution. Default: laplace.
	Kind NoiseKind

	// Delta is the δ used with Gaussian noise. Must be zero for Laplace.
	Delta float64
}

// NoiseEngine is an Engine backed by the Google differential-privacy noise
// primitives.
//
// NoiseEngine is safe for concurrent use. Sessions are not.
type NoiseEngine struct {
	kind  NoiseKind
	delta float64
	noise noise.Noise

	mu       sync.RWMutex
	datasets map[uint64]*dataset.Dataset
	nextID   uint64
}

// NewNoiseEngine returns an engine for the given configuration.
func NewNoiseEngine(cfg NoiseConfig) (*NoiseEngine, error) {
	if cfg.Kind == "" {
		cfg.Kind = Laplace
	}

	e := &NoiseEngine{
		kind:     cfg.Kind,
		delta:    cfg.Delta,
		datasets: make(map[uint64]*dataset.Dataset),
	}

	switch cfg.Kind {
	case Laplace:
		if cfg.Delta != 0 {
			return nil, fmt.Errorf("laplace noise requires delta 0, got %v", cfg.Delta)
		}
		e.noise = noise.Laplace()
	case Gaussian:
		if !(cfg.Delta > 0 && cfg.Delta < 1) {
			return nil, fmt.Errorf("gaussian noise requires delta in (0, 1), got %v", cfg.Delta)
		}
		e.noise = noise.Gaussian()
	default:
		return nil, fmt.Errorf("unknown noise kind %q", cfg.Kind)
	}

	return e, nil
}

// Kind returns the configured noise distribution.
func (e *NoiseEngine) Kind() NoiseKind {
	return e.kind
}

// Begin opens a new session.
func (e *NoiseEngine) Begin(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &noiseSession{engine: e}, nil
}

func (e *NoiseEngine) store(ds *dataset.Dataset) Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	e.datasets[e.nextID] = ds
	return NewHandle(e.nextID)
}

func (e *NoiseEngine) remove(hs []Handle) {
	if len(hs) == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, h := range hs {
		delete(e.datasets, h.ID())
	}
}

// size returns the number of datasets the engine holds.
func (e *NoiseEngine) size() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.datasets)
}

func (e *NoiseEngine) lookup(op Operation, h Handle) (*dataset.Dataset, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ds, ok := e.datasets[h.ID()]
	if !ok {
		return nil, opError(op, ErrUnknownHandle)
	}
	return ds, nil
}

// checkPrivacy mirrors the argument checks of the noise library so that bad
// input is reported instead of terminating the process.
func (e *NoiseEngine) checkPrivacy(op Operation, u Usage, lInf float64) error {
	if math.IsNaN(u.Epsilon) || math.IsInf(u.Epsilon, 0) || u.Epsilon < MinEpsilon {
		return invalid(op, "epsilon must be finite and at least 2^-50, got %v", u.Epsilon)
	}
	if math.IsNaN(lInf) || math.IsInf(lInf, 0) || lInf <= 0 {
		return invalid(op, "sensitivity must be finite and positive, got %v", lInf)
	}
	switch e.kind {
	case Laplace:
		if u.Delta != 0 {
			return invalid(op, "laplace noise requires delta 0, got %v", u.Delta)
		}
	case Gaussian:
		if !(u.Delta > 0 && u.Delta < 1) {
			return invalid(op, "gaussian noise requires delta in (0, 1), got %v", u.Delta)
		}
	}
	return nil
}

type sessionState int

const (
	stateOpen sessionState = iota
	stateEnded
	stateCommitted
	stateAborted
)

type pending struct {
	req     Request
	release *Release
}

type noiseSession struct {
	engine  *NoiseEngine
	state   sessionState
	pending []pending

	// transient handles are released when the session finishes.
	transient []Handle
	// dropped handles are released on a clean Commit.
	dropped []Handle
}

func (s *noiseSession) requireOpen(op Operation) error {
	if s.state != stateOpen {
		return opError(op, fmt.Errorf("%w: session is not open", ErrSessionState))
	}
	return nil
}

func (s *noiseSession) Load(ds *dataset.Dataset) (Handle, error) {
	if err := s.requireOpen(OpLoad); err != nil {
		return Handle{}, err
	}
	if ds == nil {
		return Handle{}, invalid(OpLoad, "dataset is nil")
	}
	return s.engine.store(ds), nil
}

func (s *noiseSession) ToFloat(h Handle, column string) (Handle, error) {
	if err := s.requireOpen(OpToFloat); err != nil {
		return Handle{}, err
	}
	ds, err := s.engine.lookup(OpToFloat, h)
	if err != nil {
		return Handle{}, err
	}
	col, err := ds.Select(column)
	if err != nil {
		return Handle{}, opError(OpToFloat, fmt.Errorf("%w: %v", ErrInvalidParams, err))
	}
	cast, err := col.MapFloat()
	if err != nil {
		return Handle{}, opError(OpToFloat, fmt.Errorf("%w: %v", ErrInvalidParams, err))
	}
	ch := s.engine.store(cast)
	s.transient = append(s.transient, ch)
	return ch, nil
}

func (s *noiseSession) Filter(h Handle, mask []bool, opts FilterOptions) (Handle, error) {
	if err := s.requireOpen(OpFilter); err != nil {
		return Handle{}, err
	}
	ds, err := s.engine.lookup(OpFilter, h)
	if err != nil {
		return Handle{}, err
	}
	view, err := ds.Where(mask)
	if err != nil {
		return Handle{}, opError(OpFilter, fmt.Errorf("%w: %v", ErrInvalidParams, err))
	}
	if len(opts.Columns) == 1 {
		if view, err = view.Select(opts.Columns[0]); err != nil {
			return Handle{}, opError(OpFilter, fmt.Errorf("%w: %v", ErrInvalidParams, err))
		}
	} else if len(opts.Columns) > 1 {
		return Handle{}, invalid(OpFilter, "at most one column may be selected, got %d", len(opts.Columns))
	}
	return s.engine.store(view), nil
}

func (s *noiseSession) Drop(h Handle) error {
	if err := s.requireOpen(OpDrop); err != nil {
		return err
	}
	if _, err := s.engine.lookup(OpDrop, h); err != nil {
		return err
	}
	s.dropped = append(s.dropped, h)
	return nil
}

func (s *noiseSession) Submit(req Request) (*Release, error) {
	if err := s.requireOpen(req.Op); err != nil {
		return nil, err
	}
	ds, err := s.engine.lookup(req.Op, req.Data)
	if err != nil {
		return nil, err
	}
	if req.Column != "" && !ds.Has(req.Column) {
		return nil, invalid(req.Op, "unknown column %q", req.Column)
	}

	switch req.Op {
	case OpMean, OpSum:
		if err := checkBounds(req.Op, req.Params); err != nil {
			return nil, err
		}
		if req.Params.N < 0 {
			return nil, invalid(req.Op, "n must be non-negative, got %d", req.Params.N)
		}
		if err := s.engine.checkPrivacy(req.Op, req.Usage, req.Params.Upper-req.Params.Lower); err != nil {
			return nil, err
		}
	case OpCount:
		if err := s.engine.checkPrivacy(req.Op, req.Usage, 1); err != nil {
			return nil, err
		}
	default:
		return nil, opError(req.Op, ErrUnsupportedOperation)
	}

	rel := NewRelease(req.Op)
	s.pending = append(s.pending, pending{req: req, release: rel})
	return rel, nil
}

func (s *noiseSession) End() error {
	if s.state != stateOpen {
		return opError("end", fmt.Errorf("%w: session is not open", ErrSessionState))
	}
	s.state = stateEnded
	return nil
}

func (s *noiseSession) Commit(ctx context.Context) error {
	if s.state != stateEnded {
		return opError("commit", fmt.Errorf("%w: session must be ended before commit", ErrSessionState))
	}
	s.state = stateCommitted

	var first error
	for _, p := range s.pending {
		if err := ctx.Err(); err != nil {
			p.release.Settle(nil, "", err)
			if first == nil {
				first = err
			}
			continue
		}
		value, err := s.evaluate(p.req)
		if err != nil {
			p.release.Settle(nil, "", err)
			if first == nil {
				first = err
			}
			continue
		}
		p.release.Settle(value, p.req.Usage.Descriptor(), nil)
	}
	s.pending = nil

	s.engine.remove(s.transient)
	if first == nil {
		s.engine.remove(s.dropped)
	}
	s.transient, s.dropped = nil, nil
	return first
}

func (s *noiseSession) Abort() {
	if s.state == stateCommitted || s.state == stateAborted {
		return
	}
	s.state = stateAborted
	s.pending = nil
	s.engine.remove(s.transient)
	s.transient, s.dropped = nil, nil
}

func (s *noiseSession) evaluate(req Request) (any, error) {
	ds, err := s.engine.lookup(req.Op, req.Data)
	if err != nil {
		return nil, err
	}

	switch req.Op {
	case OpMean:
		return s.engine.mean(ds, req)
	case OpSum:
		return s.engine.sum(ds, req)
	case OpCount:
		return s.engine.count(ds, req)
	default:
		return nil, opError(req.Op, ErrUnsupportedOperation)
	}
}

func checkBounds(op Operation, p Params) error {
	if math.IsNaN(p.Lower) || math.IsNaN(p.Upper) || math.IsInf(p.Lower, 0) || math.IsInf(p.Upper, 0) {
		return invalid(op, "bounds must be finite, got [%v, %v]", p.Lower, p.Upper)
	}
	if p.Lower >= p.Upper {
		return invalid(op, "lower bound %v must be below upper bound %v", p.Lower, p.Upper)
	}
	return nil
}
