package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/example/class-timetable/internal/application"
	"github.com/example/class-timetable/internal/recurrence"
	"github.com/example/class-timetable/internal/scheduler"
)

type timetableStore interface {
	Load(ctx context.Context, className string) (scheduler.Aggregate, error)
	Snapshot(ctx context.Context, className string) (scheduler.Aggregate, error)
	Create(ctx context.Context, input application.CreateEntryInput) (scheduler.Entry, error)
	CreateSeries(ctx context.Context, input application.CreateSeriesInput) ([]scheduler.Entry, error)
	Update(ctx context.Context, className, id string, patch application.EntryPatch) (scheduler.Entry, error)
	Delete(ctx context.Context, className, id string) error
	Normalizer() *scheduler.Normalizer
}

type entryRelocator interface {
	Relocate(ctx context.Context, className, id string, targetDay scheduler.Date, targetHour int) (scheduler.Entry, error)
}

// EntryHandler serves the timetable entries of a class.
type EntryHandler struct {
	store     timetableStore
	relocator entryRelocator
	validate  *validator.Validate
	responder responder
	logger    *slog.Logger
}

// NewEntryHandler wires the handler to the store and relocation engine.
func NewEntryHandler(store timetableStore, relocator entryRelocator, logger *slog.Logger) *EntryHandler {
	return &EntryHandler{
		store:     store,
		relocator: relocator,
		validate:  newValidator(),
		responder: newResponder(logger),
		logger:    defaultLogger(logger),
	}
}

func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	className, ok := h.className(w, r)
	if !ok {
		return
	}

	load := h.store.Snapshot
	if strings.EqualFold(r.URL.Query().Get("refresh"), "true") {
		load = h.store.Load
	}
	agg, err := load(r.Context(), className)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEntriesResponse{
		ClassName: agg.ClassName,
		Entries:   h.toDTOs(agg.Entries),
	})
}

func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	className, ok := h.className(w, r)
	if !ok {
		return
	}

	var req createEntryRequest
	if err := decodeAndValidate(r, h.validate, &req); err != nil {
		h.fail(r.Context(), w, err)
		return
	}
	input, err := req.toInput(className)
	if err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	entry, err := h.store.Create(r.Context(), input)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	handlerLogger(r, h.logger, "EntryHandler", "Create").
		InfoContext(r.Context(), "entry created", "entry_id", entry.ID)
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, h.toDTO(entry))
}

func (h *EntryHandler) CreateSeries(w http.ResponseWriter, r *http.Request) {
	className, ok := h.className(w, r)
	if !ok {
		return
	}

	var req createSeriesRequest
	if err := decodeAndValidate(r, h.validate, &req); err != nil {
		h.fail(r.Context(), w, err)
		return
	}
	input, err := req.toInput(className)
	if err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	entries, err := h.store.CreateSeries(r.Context(), input)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	handlerLogger(r, h.logger, "EntryHandler", "CreateSeries").
		InfoContext(r.Context(), "series created", "count", len(entries))
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, listEntriesResponse{
		ClassName: className,
		Entries:   h.toDTOs(entries),
	})
}

func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	className, ok := h.className(w, r)
	if !ok {
		return
	}

	var req patchEntryRequest
	if err := decodeAndValidate(r, h.validate, &req); err != nil {
		h.fail(r.Context(), w, err)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	entry, err := h.store.Update(r.Context(), className, r.PathValue("id"), patch)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.toDTO(entry))
}

func (h *EntryHandler) Relocate(w http.ResponseWriter, r *http.Request) {
	className, ok := h.className(w, r)
	if !ok {
		return
	}

	var req relocateRequest
	if err := decodeAndValidate(r, h.validate, &req); err != nil {
		h.fail(r.Context(), w, err)
		return
	}
	day, err := scheduler.ParseDate(req.Date)
	if err != nil {
		h.fail(r.Context(), w, invalidField("date", err))
		return
	}

	entry, err := h.relocator.Relocate(r.Context(), className, r.PathValue("id"), day, *req.Hour)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.toDTO(entry))
}

func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	className, ok := h.className(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), className, r.PathValue("id")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *EntryHandler) className(w http.ResponseWriter, r *http.Request) (string, bool) {
	className := strings.TrimSpace(r.PathValue("class"))
	if className == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingClass)
		return "", false
	}
	return className, true
}

func (h *EntryHandler) fail(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, errBadRequestBody) {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}
	h.responder.handleServiceError(ctx, w, err)
}

func (h *EntryHandler) toDTOs(entries []scheduler.Entry) []entryDTO {
	dtos := make([]entryDTO, 0, len(entries))
	for _, entry := range entries {
		dtos = append(dtos, h.toDTO(entry))
	}
	return dtos
}

func (h *EntryHandler) toDTO(entry scheduler.Entry) entryDTO {
	normalizer := h.store.Normalizer()
	date, start := normalizer.Civil(entry.StartAt)
	_, end := normalizer.Civil(entry.EndAt)
	return entryDTO{
		ID:        entry.ID,
		ClassName: entry.ClassName,
		Subject:   entry.Subject,
		Room:      entry.Room,
		ZoomID:    entry.ZoomID,
		CourseID:  entry.CourseID,
		StartAt:   entry.StartAt.UTC(),
		EndAt:     entry.EndAt.UTC(),
		Date:      date.String(),
		Start:     start.String(),
		End:       end.String(),
	}
}

type entryDTO struct {
	ID        string    `json:"id"`
	ClassName string    `json:"className"`
	Subject   string    `json:"subject"`
	Room      string    `json:"room"`
	ZoomID    string    `json:"zoomId,omitempty"`
	CourseID  string    `json:"courseId,omitempty"`
	StartAt   time.Time `json:"startAt"`
	EndAt     time.Time `json:"endAt"`
	Date      string    `json:"date"`
	Start     string    `json:"start"`
	End       string    `json:"end"`
}

type listEntriesResponse struct {
	ClassName string     `json:"className"`
	Entries   []entryDTO `json:"entries"`
}

type createEntryRequest struct {
	Subject     string `json:"subject"`
	Room        string `json:"room"`
	ZoomID      string `json:"zoomId"`
	CourseID    string `json:"courseId"`
	Date        string `json:"date" validate:"required,civildate"`
	Start       string `json:"start" validate:"required,timeofday"`
	End         string `json:"end" validate:"required,timeofday"`
	OffsetHours *int   `json:"offsetHours" validate:"omitempty,min=-12,max=14"`
}

func (req createEntryRequest) toInput(className string) (application.CreateEntryInput, error) {
	input, err := req.times(className)
	if err != nil {
		return application.CreateEntryInput{}, err
	}
	date, err := scheduler.ParseDate(req.Date)
	if err != nil {
		return application.CreateEntryInput{}, invalidField("date", err)
	}
	input.Date = date
	return input, nil
}

// times fills everything except the date, which series requests derive from a rule.
func (req createEntryRequest) times(className string) (application.CreateEntryInput, error) {
	start, err := scheduler.ParseTimeOfDay(req.Start)
	if err != nil {
		return application.CreateEntryInput{}, invalidField("start", err)
	}
	end, err := scheduler.ParseTimeOfDay(req.End)
	if err != nil {
		return application.CreateEntryInput{}, invalidField("end", err)
	}
	return application.CreateEntryInput{
		ClassName:   className,
		Subject:     req.Subject,
		Room:        req.Room,
		ZoomID:      req.ZoomID,
		CourseID:    req.CourseID,
		Start:       start,
		End:         end,
		OffsetHours: req.OffsetHours,
	}, nil
}

type createSeriesRequest struct {
	Subject     string   `json:"subject"`
	Room        string   `json:"room"`
	ZoomID      string   `json:"zoomId"`
	CourseID    string   `json:"courseId"`
	Start       string   `json:"start" validate:"required,timeofday"`
	End         string   `json:"end" validate:"required,timeofday"`
	OffsetHours *int     `json:"offsetHours" validate:"omitempty,min=-12,max=14"`
	Frequency   string   `json:"frequency" validate:"required,oneof=daily weekly"`
	Weekdays    []string `json:"weekdays" validate:"omitempty,dive,weekday"`
	StartsOn    string   `json:"startsOn" validate:"required,civildate"`
	EndsOn      string   `json:"endsOn" validate:"required,civildate"`
}

func (req createSeriesRequest) toInput(className string) (application.CreateSeriesInput, error) {
	entry, err := createEntryRequest{
		Subject:     req.Subject,
		Room:        req.Room,
		ZoomID:      req.ZoomID,
		CourseID:    req.CourseID,
		Start:       req.Start,
		End:         req.End,
		OffsetHours: req.OffsetHours,
	}.times(className)
	if err != nil {
		return application.CreateSeriesInput{}, err
	}

	startsOn, err := scheduler.ParseDate(req.StartsOn)
	if err != nil {
		return application.CreateSeriesInput{}, invalidField("startsOn", err)
	}
	endsOn, err := scheduler.ParseDate(req.EndsOn)
	if err != nil {
		return application.CreateSeriesInput{}, invalidField("endsOn", err)
	}
	weekdays, err := parseWeekdays(req.Weekdays)
	if err != nil {
		return application.CreateSeriesInput{}, err
	}

	return application.CreateSeriesInput{
		Entry: entry,
		Rule: recurrence.Rule{
			Frequency: recurrence.ParseFrequency(req.Frequency),
			Weekdays:  weekdays,
			StartsOn:  startsOn,
			EndsOn:    endsOn,
		},
	}, nil
}

type patchEntryRequest struct {
	Date        *string    `json:"date" validate:"omitempty,civildate"`
	Start       *string    `json:"start" validate:"omitempty,timeofday"`
	End         *string    `json:"end" validate:"omitempty,timeofday"`
	OffsetHours *int       `json:"offsetHours" validate:"omitempty,min=-12,max=14"`
	StartAt     *time.Time `json:"startAt"`
	EndAt       *time.Time `json:"endAt"`
	Room        *string    `json:"room"`
	ZoomID      *string    `json:"zoomId"`
}

func (req patchEntryRequest) toPatch() (application.EntryPatch, error) {
	patch := application.EntryPatch{
		OffsetHours: req.OffsetHours,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
		Room:        req.Room,
		ZoomID:      req.ZoomID,
	}
	if req.Date != nil {
		date, err := scheduler.ParseDate(*req.Date)
		if err != nil {
			return application.EntryPatch{}, invalidField("date", err)
		}
		patch.Date = &date
	}
	if req.Start != nil {
		start, err := scheduler.ParseTimeOfDay(*req.Start)
		if err != nil {
			return application.EntryPatch{}, invalidField("start", err)
		}
		patch.Start = &start
	}
	if req.End != nil {
		end, err := scheduler.ParseTimeOfDay(*req.End)
		if err != nil {
			return application.EntryPatch{}, invalidField("end", err)
		}
		patch.End = &end
	}
	return patch, nil
}

type relocateRequest struct {
	Date string `json:"date" validate:"required,civildate"`
	Hour *int   `json:"hour" validate:"required,min=0,max=23"`
}
