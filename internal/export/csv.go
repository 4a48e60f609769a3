package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/example/class-timetable/internal/scheduler"
)

// ErrMalformedCSV reports an unreadable timetable CSV document.
var ErrMalformedCSV = errors.New("export: malformed csv")

// CSVHeader is the first record of every timetable CSV document.
var CSVHeader = []string{"id", "class", "subject", "room", "zoom_id", "course_id", "start_at", "end_at"}

// WriteCSV writes agg with instants in RFC3339 UTC.
func WriteCSV(w io.Writer, agg scheduler.Aggregate) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(CSVHeader); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	for _, entry := range agg.Entries {
		record := []string{
			entry.ID,
			entry.ClassName,
			entry.Subject,
			entry.Room,
			entry.ZoomID,
			entry.CourseID,
			entry.StartAt.UTC().Format(time.RFC3339),
			entry.EndAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("export: write entry %s: %w", entry.ID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadCSV parses a document written by WriteCSV. Errors name the offending line.
func ReadCSV(r io.Reader) ([]scheduler.Entry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(CSVHeader)

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrMalformedCSV)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedCSV, err)
	}
	if !slices.Equal(trimAll(header), CSVHeader) {
		return nil, fmt.Errorf("%w: unexpected header %q", ErrMalformedCSV, strings.Join(header, ","))
	}

	entries := make([]scheduler.Entry, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCSV, err)
		}
		line, _ := reader.FieldPos(0)

		startAt, err := time.Parse(time.RFC3339, strings.TrimSpace(record[6]))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: start_at: %v", ErrMalformedCSV, line, err)
		}
		endAt, err := time.Parse(time.RFC3339, strings.TrimSpace(record[7]))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: end_at: %v", ErrMalformedCSV, line, err)
		}

		entries = append(entries, scheduler.Entry{
			ID:        strings.TrimSpace(record[0]),
			ClassName: strings.TrimSpace(record[1]),
			Subject:   record[2],
			Room:      record[3],
			ZoomID:    record[4],
			CourseID:  record[5],
			StartAt:   startAt.UTC(),
			EndAt:     endAt.UTC(),
			Type:      scheduler.EntryTypeLecture,
		})
	}
	return entries, nil
}

func trimAll(values []string) []string {
	trimmed := make([]string, len(values))
	for i, value := range values {
		trimmed[i] = strings.ToLower(strings.TrimSpace(value))
	}
	return trimmed
}
