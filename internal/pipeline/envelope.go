package pipeline

import (
	"encoding/json"
	"net/http"

	"github.com/ultimatemcp/platform/internal/apierr"
	"github.com/ultimatemcp/platform/internal/reqcontext"
)

// errorBody is the `{ error: {code, message, details?}, request_id }`
// envelope defines.
type errorBody struct {
	Error     errorDetail `json:"error"`
	RequestID string      `json:"request_id,omitempty"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// WriteError renders err as the canonical JSON error envelope with its
// kind's HTTP status. Non-apierr errors are reported as KindInternal
// without leaking their message, since an un-typed error is, by
// construction, not a safe one to show a caller.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apierr.KindOf(err)
	status := kind.HTTPStatus()

	body := errorBody{
		Error:     errorDetail{Code: string(kind), Message: safeMessage(err, kind)},
		RequestID: reqcontext.CorrelationID(r.Context()),
	}
	if ae, ok := apierr.As(err); ok {
		body.Error.Details = ae.Details
		if kind == apierr.KindRateLimited {
			retryAfterHeader(w, ae)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// safeMessage reports only the Error's own Message, never Cause: a
// wrapped driver/internal error must never reach a caller, per
// apierr's documented rule that stack traces and internal detail stay
// in the log, keyed by correlation id.
func safeMessage(err error, kind apierr.Kind) string {
	if ae, ok := apierr.As(err); ok {
		return ae.Message
	}
	return string(kind)
}
