package testfixtures

import (
	"context"
	"sync"

	"github.com/example/class-timetable/internal/application"
)

// Message is a notification captured by RecordingDispatcher.
type Message struct {
	Title    string
	Body     string
	Audience []string
	Category string
}

// RecordingDispatcher captures sent notifications.
type RecordingDispatcher struct {
	mu       sync.Mutex
	messages []Message
	err      error
}

var _ application.Dispatcher = (*RecordingDispatcher)(nil)

// NewRecordingDispatcher returns an empty dispatcher.
func NewRecordingDispatcher() *RecordingDispatcher {
	return &RecordingDispatcher{}
}

// Fail makes subsequent sends return err without recording. A nil err restores delivery.
func (d *RecordingDispatcher) Fail(err error) {
	d.mu.Lock()
	d.err = err
	d.mu.Unlock()
}

func (d *RecordingDispatcher) Send(_ context.Context, title, body string, audience []string, category string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.messages = append(d.messages, Message{
		Title:    title,
		Body:     body,
		Audience: append([]string(nil), audience...),
		Category: category,
	})
	return nil
}

// Messages returns a copy of the captured notifications in send order.
func (d *RecordingDispatcher) Messages() []Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Message, len(d.messages))
	copy(out, d.messages)
	return out
}

// StaticAudience resolves audiences from a fixed map.
type StaticAudience struct {
	Members map[string][]string
	Err     error
}

var _ application.AudienceDirectory = StaticAudience{}

func (s StaticAudience) Audience(_ context.Context, className string) ([]string, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]string(nil), s.Members[className]...), nil
}
