package http

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/class-timetable/internal/export"
	"github.com/example/class-timetable/internal/scheduler"
)

type snapshotter interface {
	Snapshot(ctx context.Context, className string) (scheduler.Aggregate, error)
}

// ExportHandler renders a class timetable as iCalendar or CSV.
type ExportHandler struct {
	store     snapshotter
	now       func() time.Time
	responder responder
}

// NewExportHandler constructs an export handler. now stamps iCalendar events and
// defaults to time.Now.
func NewExportHandler(store snapshotter, now func() time.Time, logger *slog.Logger) *ExportHandler {
	if now == nil {
		now = time.Now
	}
	return &ExportHandler{store: store, now: now, responder: newResponder(logger)}
}

func (h *ExportHandler) ICS(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "text/calendar; charset=utf-8", "ics", func(buf *bytes.Buffer, agg scheduler.Aggregate) error {
		return export.ICS(buf, agg, h.now())
	})
}

func (h *ExportHandler) CSV(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "text/csv; charset=utf-8", "csv", func(buf *bytes.Buffer, agg scheduler.Aggregate) error {
		return export.WriteCSV(buf, agg)
	})
}

// render buffers the document so encoding failures still produce a JSON error.
func (h *ExportHandler) render(w http.ResponseWriter, r *http.Request, contentType, ext string, encode func(*bytes.Buffer, scheduler.Aggregate) error) {
	className := strings.TrimSpace(r.PathValue("class"))
	if className == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingClass)
		return
	}

	agg, err := h.store.Snapshot(r.Context(), className)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	var buf bytes.Buffer
	if err := encode(&buf, agg); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusInternalServerError, fmt.Errorf("export %s: %w", ext, err))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", className+"."+ext))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.responder.loggerFor(r.Context()).WarnContext(r.Context(), "failed to write export", "error", err)
	}
}
