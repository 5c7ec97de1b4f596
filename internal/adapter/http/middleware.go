package http

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
)

const requestIDHeader = "X-Request-Id"

// withRequestID keeps a caller-supplied request id or assigns a new one, and
// echoes it on the response.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// slogPrinter adapts slog to handlers.RecoveryHandlerLogger.
type slogPrinter struct {
	logger *slog.Logger
}

func (p slogPrinter) Println(v ...any) {
	p.logger.Error("panic recovered", "panic", v)
}

func withRecovery(next http.Handler, logger *slog.Logger) http.Handler {
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(slogPrinter{logger: logger}),
		handlers.PrintRecoveryStack(false),
	)(next)
}

// withRequestLog logs one line per request after the response completes.
func withRequestLog(next http.Handler, logger *slog.Logger) http.Handler {
	return handlers.CustomLoggingHandler(io.Discard, next, func(_ io.Writer, p handlers.LogFormatterParams) {
		logger.Info("http request",
			"method", p.Request.Method,
			"path", p.URL.Path,
			"status", p.StatusCode,
			"bytes", p.Size,
			"request_id", p.Request.Header.Get(requestIDHeader),
			"duration", time.Since(p.TimeStamp),
		)
	})
}
