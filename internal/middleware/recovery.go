package middleware

import (
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"
)

// PanicWriter renders the response for a request whose handler panicked.
// rvr is the recovered value.
type PanicWriter func(w http.ResponseWriter, r *http.Request, rvr any)

// RecoveryConfig configures Recoverer.
type RecoveryConfig struct {
	// IsDevelopment also dumps the stack to stderr.
	IsDevelopment bool
	// WriteError renders the 500. Nil writes a generic JSON error.
	WriteError PanicWriter
}

// Recoverer turns a panic in a handler into a logged 500 response.
// http.ErrAbortHandler is re-raised so net/http can drop the connection.
func Recoverer(logger *slog.Logger, cfg RecoveryConfig) func(http.Handler) http.Handler {
	writeError := cfg.WriteError
	if writeError == nil {
		writeError = writeInternalError
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				stack := debug.Stack()
				logger.Error("panic recovered",
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("panic", rvr),
					slog.String("stack", string(stack)),
				)
				if cfg.IsDevelopment {
					_, _ = os.Stderr.Write(stack)
				}

				writeError(w, r, rvr)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func writeInternalError(w http.ResponseWriter, _ *http.Request, _ any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(`{"error":"Internal Server Error"}`))
}
