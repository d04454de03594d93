package mechanism

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Usage is a parsed privacy-usage descriptor.
type Usage struct {
	Epsilon float64 `yaml:"epsilon" json:"epsilon"`
	Delta   float64 `yaml:"delta" json:"delta"`
}

// Descriptor renders u in the flow form accepted by ParseUsage. Values are
// printed with full precision so that a round trip is exact.
func (u Usage) Descriptor() string {
	return fmt.Sprintf("{epsilon: %s, delta: %s}",
		strconv.FormatFloat(u.Epsilon, 'g', -1, 64),
		strconv.FormatFloat(u.Delta, 'g', -1, 64),
	)
}

type usageDoc struct {
	Epsilon *float64 `yaml:"epsilon"`
	Delta   *float64 `yaml:"delta"`
}

// ParseUsage parses a privacy-usage descriptor such as "epsilon: 0.65",
// "{epsilon: 0.65, delta: 1e-6}" or `{"epsilon": 0.65}`.
func ParseUsage(desc string) (Usage, error) {
	var doc usageDoc
	dec := yaml.NewDecoder(bytes.NewBufferString(desc))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return Usage{}, opError("parse_usage", fmt.Errorf("malformed privacy usage %q: %w", desc, err))
	}

	if doc.Epsilon == nil {
		return Usage{}, opError("parse_usage", fmt.Errorf("privacy usage %q has no epsilon", desc))
	}
	u := Usage{Epsilon: *doc.Epsilon}
	if doc.Delta != nil {
		u.Delta = *doc.Delta
	}

	if math.IsNaN(u.Epsilon) || math.IsInf(u.Epsilon, 0) || u.Epsilon < 0 {
		return Usage{}, opError("parse_usage", fmt.Errorf("epsilon must be finite and non-negative, got %v", u.Epsilon))
	}
	if math.IsNaN(u.Delta) || u.Delta < 0 || u.Delta >= 1 {
		return Usage{}, opError("parse_usage", fmt.Errorf("delta must be in [0, 1), got %v", u.Delta))
	}

	return u, nil
}
