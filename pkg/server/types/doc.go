// Package types defines the request and response bodies of the Epsilon HTTP
// API.
//
// Request types carry a Validate method that rejects malformed input before
// it reaches the accountant:
//   - MeanRequest: POST /v1/mean
//   - CountRequest: POST /v1/count
//   - FilterRequest: POST /v1/filter
//   - ResetRequest: POST /v1/reset
//
// Every failure is reported as an ErrorResponse:
//
//	{"error": {"message": "privacy budget exhausted", "type": "budget_exhausted", "code": "budget_exhausted"}}
//
// ErrorDetail.HTTPStatusCode maps the error type to the status code.
package types
