package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/example/class-timetable/internal/persistence"
)

// ParticipantHandler manages the notification audience of a class.
type ParticipantHandler struct {
	repo      persistence.ParticipantRepository
	validate  *validator.Validate
	responder responder
	logger    *slog.Logger
}

// NewParticipantHandler constructs a handler backed by repo.
func NewParticipantHandler(repo persistence.ParticipantRepository, logger *slog.Logger) *ParticipantHandler {
	return &ParticipantHandler{
		repo:      repo,
		validate:  newValidator(),
		responder: newResponder(logger),
		logger:    defaultLogger(logger),
	}
}

func (h *ParticipantHandler) List(w http.ResponseWriter, r *http.Request) {
	className := strings.TrimSpace(r.PathValue("class"))
	participants, err := h.repo.ListParticipants(r.Context(), className)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]participantDTO, 0, len(participants))
	for _, participant := range participants {
		dtos = append(dtos, toParticipantDTO(participant))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listParticipantsResponse{ClassName: className, Participants: dtos})
}

func (h *ParticipantHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addParticipantRequest
	if err := decodeAndValidate(r, h.validate, &req); err != nil {
		if errors.Is(err, errBadRequestBody) {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
			return
		}
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	participant, err := h.repo.AddParticipant(r.Context(), persistence.Participant{
		ClassName:     r.PathValue("class"),
		ParticipantID: req.ParticipantID,
		DisplayName:   strings.TrimSpace(req.DisplayName),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	handlerLogger(r, h.logger, "ParticipantHandler", "Add").
		InfoContext(r.Context(), "participant added", "participant_id", participant.ParticipantID)
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toParticipantDTO(participant))
}

// Remove is idempotent: an unknown participant still answers 204.
func (h *ParticipantHandler) Remove(w http.ResponseWriter, r *http.Request) {
	err := h.repo.RemoveParticipant(r.Context(), strings.TrimSpace(r.PathValue("class")), r.PathValue("participant"))
	if err != nil && !errors.Is(err, persistence.ErrNotFound) {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type addParticipantRequest struct {
	ParticipantID string `json:"participantId" validate:"required"`
	DisplayName   string `json:"displayName"`
}

type participantDTO struct {
	ParticipantID string    `json:"participantId"`
	DisplayName   string    `json:"displayName,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type listParticipantsResponse struct {
	ClassName    string           `json:"className"`
	Participants []participantDTO `json:"participants"`
}

func toParticipantDTO(participant persistence.Participant) participantDTO {
	return participantDTO{
		ParticipantID: participant.ParticipantID,
		DisplayName:   participant.DisplayName,
		CreatedAt:     participant.CreatedAt,
	}
}
