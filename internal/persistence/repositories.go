package persistence

import (
	"context"
	"time"
)

// EntryRepository stores timetable entries.
type EntryRepository interface {
	CreateEntry(ctx context.Context, entry Entry) (Entry, error)
	UpdateEntry(ctx context.Context, id string, patch EntryPatch) (Entry, error)
	GetEntry(ctx context.Context, id string) (Entry, error)
	ListEntriesByClass(ctx context.Context, className string) ([]Entry, error)
	DeleteEntry(ctx context.Context, id string) error
}

// OutboxRepository stores notifications until a relay delivers them.
type OutboxRepository interface {
	EnqueueMessage(ctx context.Context, message OutboxMessage) (OutboxMessage, error)
	ListPendingMessages(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) error
	MarkFailed(ctx context.Context, id string, reason string) error
}

// ParticipantRepository stores class membership used for notification audiences.
type ParticipantRepository interface {
	AddParticipant(ctx context.Context, participant Participant) (Participant, error)
	ListParticipants(ctx context.Context, className string) ([]Participant, error)
	RemoveParticipant(ctx context.Context, className, participantID string) error
}
