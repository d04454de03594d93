package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"mercator-hq/epsilon/pkg/accountant"
	"mercator-hq/epsilon/pkg/guard"
	"mercator-hq/epsilon/pkg/mechanism"
	"mercator-hq/epsilon/pkg/server/types"
)

// errorResponse maps an error from decoding or from the accountant to the
// response body. The status code follows from the error type.
func errorResponse(err error) *types.ErrorResponse {
	var (
		valErr    *types.ValidationError
		costErr   *accountant.InvalidCostError
		protected *guard.ProtectedAccessError
		mechErr   *mechanism.Error
		maxBytes  *http.MaxBytesError
	)

	switch {
	case errors.As(err, &maxBytes):
		return types.NewErrorResponse(err.Error(), types.ErrorTypeRequestTooLarge, "body", "")
	case errors.As(err, &valErr):
		if valErr.Field == "body" {
			return types.NewInvalidRequestError(valErr.Message, valErr.Field, types.CodeInvalidJSON)
		}
		return types.NewInvalidRequestError(valErr.Message, valErr.Field, types.CodeInvalidValue)
	case errors.As(err, &costErr):
		return types.NewInvalidRequestError(err.Error(), "cost", types.CodeInvalidCost)
	case errors.Is(err, accountant.ErrBudgetExhausted):
		return types.NewErrorResponse(err.Error(), types.ErrorTypeBudgetExhausted, "", types.CodeBudgetExhausted)
	case errors.As(err, &protected):
		return types.NewErrorResponse(err.Error(), types.ErrorTypePermissionDenied, protected.Field, types.CodeProtectedField)
	case errors.Is(err, context.DeadlineExceeded):
		return types.NewTimeoutError("request deadline exceeded")
	case errors.As(err, &mechErr):
		return types.NewErrorResponse(err.Error(), types.ErrorTypeMechanism, "", string(mechErr.Op))
	case errors.Is(err, accountant.ErrClosed):
		return types.NewErrorResponse(err.Error(), types.ErrorTypeServiceUnavailable, "", "")
	default:
		return types.NewServerError("An internal error occurred. Please try again later.")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	resp := errorResponse(err)
	status := resp.Error.HTTPStatusCode()
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
