package http

import (
	"log/slog"
	"net/http"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// handlerLogger scopes the request logger to a handler operation and to the class and
// entry addressed by the route.
func handlerLogger(r *http.Request, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	logger := LoggerFromContext(r.Context())
	if logger == nil {
		logger = defaultLogger(fallback)
	}

	pairs := []any{"handler", handlerName, "operation", operation}
	if className := r.PathValue("class"); className != "" {
		pairs = append(pairs, "class", className)
	}
	if id := r.PathValue("id"); id != "" {
		pairs = append(pairs, "entry_id", id)
	}
	return logger.With(append(pairs, attrs...)...)
}
