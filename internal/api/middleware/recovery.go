package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"

	apierrors "github.com/narvanalabs/redbutton/internal/api/errors"
)

// ErrorRenderer writes an error response for the request.
type ErrorRenderer func(w http.ResponseWriter, r *http.Request, err *apierrors.APIError)

// Recovery returns a middleware that recovers from panics, logs them and
// hands an internal error to render. A nil render writes JSON.
func Recovery(logger *slog.Logger, render ErrorRenderer) func(http.Handler) http.Handler {
	if render == nil {
		render = func(w http.ResponseWriter, _ *http.Request, err *apierrors.APIError) {
			apierrors.WriteError(w, err)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				requestID := middleware.GetReqID(r.Context())
				logger.Error("panic recovered",
					"error", rec,
					"error_code", apierrors.CodeInternalError,
					"stack_trace", string(debug.Stack()),
					"request_id", requestID,
					"method", r.Method,
					"path", r.URL.Path,
				)

				render(w, r, apierrors.NewInternalError("An unexpected error occurred").WithRequestID(requestID))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
