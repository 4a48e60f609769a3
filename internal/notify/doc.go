// Package notify delivers timetable notifications.
//
// The schedule store commits first and notifies afterwards, so delivery runs through a
// transactional outbox: OutboxDispatcher records each message in SQLite and a Relay
// drains pending rows to a Sink on an interval. LogDispatcher skips the outbox for
// one-shot CLI runs.
package notify
