package types

import (
	"fmt"
	"math"
)

// Sources accepted in request bodies.
const (
	SourceDataset  = "dataset"
	SourceFiltered = "filtered"
)

// MeanRequest is the body of POST /v1/mean.
type MeanRequest struct {
	// Cost is the privacy cost (epsilon) the caller is willing to spend.
	Cost float64 `json:"cost"`

	// Source is "dataset" (default) or "filtered".
	Source string `json:"source,omitempty"`

	// Column selects a column. Empty selects the first one.
	Column string `json:"column,omitempty"`

	// Lower and Upper bound each record's contribution.
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`

	// N is the assumed number of records. Zero uses the actual row count.
	N int `json:"n,omitempty"`
}

// Validate checks the request before it reaches the accountant.
func (r *MeanRequest) Validate() error {
	if err := validateCost(r.Cost); err != nil {
		return err
	}
	if err := validateSource(r.Source); err != nil {
		return err
	}
	if math.IsNaN(r.Lower) || math.IsNaN(r.Upper) || r.Lower >= r.Upper {
		return &ValidationError{Field: "upper", Message: fmt.Sprintf("upper (%v) must be greater than lower (%v)", r.Upper, r.Lower)}
	}
	if r.N < 0 {
		return &ValidationError{Field: "n", Message: "n must be non-negative"}
	}
	return nil
}

// CountRequest is the body of POST /v1/count.
type CountRequest struct {
	Cost   float64 `json:"cost"`
	Source string  `json:"source,omitempty"`
	Column string  `json:"column,omitempty"`
}

// Validate checks the request before it reaches the accountant.
func (r *CountRequest) Validate() error {
	if err := validateCost(r.Cost); err != nil {
		return err
	}
	return validateSource(r.Source)
}

// FilterRequest is the body of POST /v1/filter.
type FilterRequest struct {
	// Mask has one entry per row of the original dataset.
	Mask []bool `json:"mask"`

	// Column, if set, keeps only that column in the filtered view.
	Column string `json:"column,omitempty"`
}

// Validate checks the request before it reaches the accountant.
func (r *FilterRequest) Validate() error {
	if r.Mask == nil {
		return &ValidationError{Field: "mask", Message: "mask is required"}
	}
	return nil
}

// ResetRequest is the body of POST /v1/reset.
type ResetRequest struct {
	Credential string `json:"credential"`
}

// ValidationError is a field-level validation failure.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func validateCost(cost float64) error {
	if math.IsNaN(cost) || math.IsInf(cost, 0) || cost <= 0 {
		return &ValidationError{Field: "cost", Message: "cost must be finite and positive"}
	}
	return nil
}

func validateSource(source string) error {
	switch source {
	case "", SourceDataset, SourceFiltered:
		return nil
	default:
		return &ValidationError{Field: "source", Message: fmt.Sprintf("unknown source %q", source)}
	}
}
