package types

import "mercator-hq/epsilon/pkg/ledger"

// ReleaseResponse is returned by the statistic endpoints.
type ReleaseResponse struct {
	// Value is the released statistic.
	Value float64 `json:"value"`

	// Used and Remaining are the budget figures after the release.
	Used      float64 `json:"used"`
	Remaining float64 `json:"remaining"`
}

// FilterResponse is returned by POST /v1/filter.
type FilterResponse struct {
	OK bool `json:"ok"`
}

// LedgerResponse is returned by GET /v1/ledger.
type LedgerResponse struct {
	Entries []*ledger.Entry `json:"entries"`
	Total   int64           `json:"total"`
}
