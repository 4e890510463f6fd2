package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"wikiflow/internal/httputil"
)

// statusRecorder remembers whether the handler already started its response
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Recovery turns a handler panic into a 500 problem response. A panic after
// the response started is only logged, and http.ErrAbortHandler is re-raised
// so the server drops the connection.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(v)
				}

				logger.Error("panic recovered",
					"error", v,
					"path", r.URL.Path,
					"method", r.Method,
					"response_started", rec.status != 0,
					"stack", string(debug.Stack()),
				)
				if rec.status != 0 {
					return
				}
				httputil.RespondError(rec, http.StatusInternalServerError, "internal server error")
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
