package persistence

import "time"

// Entry is a timetable session row.
type Entry struct {
	ID        string
	ClassName string
	Subject   string
	Room      string
	ZoomID    *string
	CourseID  string
	Type      int
	StartAt   time.Time
	EndAt     time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EntryPatch lists the columns an entry update may change. Nil fields are left as stored.
type EntryPatch struct {
	StartAt *time.Time
	EndAt   *time.Time
	Room    *string
	ZoomID  *string
}

// OutboxMessage is a pending or delivered notification.
type OutboxMessage struct {
	ID          string
	Title       string
	Body        string
	Audience    []string
	Category    string
	Attempts    int
	LastError   *string
	CreatedAt   time.Time
	DeliveredAt *time.Time
}

// Participant links a notification recipient to a class.
type Participant struct {
	ID            string
	ClassName     string
	ParticipantID string
	DisplayName   string
	CreatedAt     time.Time
}
