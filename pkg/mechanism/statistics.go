package mechanism

import (
	"fmt"
	"math"

	"mercator-hq/epsilon/pkg/dataset"
)

// mean releases the clamped mean of a column. The sensitivity is
// (upper-lower)/n, where n is Params.N when set and the row count otherwise.
func (e *NoiseEngine) mean(ds *dataset.Dataset, req Request) (float64, error) {
	values, err := ds.Floats(req.Column)
	if err != nil {
		return 0, opError(req.Op, fmt.Errorf("%w: %v", ErrInvalidParams, err))
	}

	n := req.Params.N
	if n == 0 {
		n = len(values)
	}
	if n == 0 {
		return 0, invalid(req.Op, "mean of an empty dataset requires n")
	}
	// rows beyond n are discarded
	if len(values) > n {
		values = values[:n]
	}

	lower, upper := req.Params.Lower, req.Params.Upper
	var sum float64
	for _, v := range values {
		sum += clamp(v, lower, upper)
	}
	// rows beyond the observed data are imputed at the midpoint
	if missing := n - len(values); missing > 0 {
		sum += float64(missing) * (lower + upper) / 2
	}
	raw := sum / float64(n)

	sensitivity := (upper - lower) / float64(n)
	if err := e.checkPrivacy(req.Op, req.Usage, sensitivity); err != nil {
		return 0, err
	}

	noised := e.noise.AddNoiseFloat64(raw, 1, sensitivity, req.Usage.Epsilon, req.Usage.Delta)
	return clamp(noised, lower, upper), nil
}

// sum releases the clamped sum of a column.
func (e *NoiseEngine) sum(ds *dataset.Dataset, req Request) (float64, error) {
	values, err := ds.Floats(req.Column)
	if err != nil {
		return 0, opError(req.Op, fmt.Errorf("%w: %v", ErrInvalidParams, err))
	}

	lower, upper := req.Params.Lower, req.Params.Upper
	var sum float64
	for _, v := range values {
		sum += clamp(v, lower, upper)
	}

	sensitivity := math.Max(math.Abs(lower), math.Abs(upper))
	if err := e.checkPrivacy(req.Op, req.Usage, sensitivity); err != nil {
		return 0, err
	}
	return e.noise.AddNoiseFloat64(sum, 1, sensitivity, req.Usage.Epsilon, req.Usage.Delta), nil
}

// count releases the row count. Negative noised counts are clamped to zero.
func (e *NoiseEngine) count(ds *dataset.Dataset, req Request) (int64, error) {
	rows := int64(ds.Rows())
	noised := e.noise.AddNoiseInt64(rows, 1, 1, req.Usage.Epsilon, req.Usage.Delta)
	if noised < 0 {
		noised = 0
	}
	return noised, nil
}

func clamp(v, lower, upper float64) float64 {
	return math.Min(math.Max(v, lower), upper)
}
