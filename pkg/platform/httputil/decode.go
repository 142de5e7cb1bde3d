package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "coopconsole/pkg/domain-errors"
)

// Validatable is implemented by request types that support validation.
type Validatable interface {
	Validate() error
}

// DecodeJSON decodes a JSON request body into T and validates it when T
// implements Validatable. On failure it writes the error response and
// returns nil, false.
//
// Usage:
//
//	req, ok := httputil.DecodeJSON[signInRequest](w, r, logger)
//	if !ok {
//	    return
//	}
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	ctx := r.Context()
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "failed to decode request body", "error", err)
		WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return nil, false
	}
	if v, ok := any(&req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			logger.WarnContext(ctx, "invalid request", "error", err)
			if dErrors.CodeOf(err) == dErrors.CodeInternal {
				err = dErrors.New(dErrors.CodeInvalidInput, err.Error())
			}
			WriteError(w, err)
			return nil, false
		}
	}
	return &req, true
}
