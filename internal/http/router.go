package http

import (
	"net/http"
)

// RouterConfig selects the handlers mounted by NewRouter. Nil handlers leave their
// routes unregistered.
type RouterConfig struct {
	Entries      *EntryHandler
	Exports      *ExportHandler
	Participants *ParticipantHandler
	Health       *HealthHandler
	Middleware   []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Entries != nil {
		mux.HandleFunc("GET /classes/{class}/entries", cfg.Entries.List)
		mux.HandleFunc("POST /classes/{class}/entries", cfg.Entries.Create)
		mux.HandleFunc("POST /classes/{class}/entries/series", cfg.Entries.CreateSeries)
		mux.HandleFunc("PATCH /classes/{class}/entries/{id}", cfg.Entries.Update)
		mux.HandleFunc("DELETE /classes/{class}/entries/{id}", cfg.Entries.Delete)
		mux.HandleFunc("POST /classes/{class}/entries/{id}/relocate", cfg.Entries.Relocate)
	}

	if cfg.Exports != nil {
		mux.HandleFunc("GET /classes/{class}/export.ics", cfg.Exports.ICS)
		mux.HandleFunc("GET /classes/{class}/export.csv", cfg.Exports.CSV)
	}

	if cfg.Participants != nil {
		mux.HandleFunc("GET /classes/{class}/participants", cfg.Participants.List)
		mux.HandleFunc("POST /classes/{class}/participants", cfg.Participants.Add)
		mux.HandleFunc("DELETE /classes/{class}/participants/{participant}", cfg.Participants.Remove)
	}

	if cfg.Health != nil {
		mux.HandleFunc("GET /healthz", cfg.Health.Check)
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}
