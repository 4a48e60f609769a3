package testfixtures

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/example/class-timetable/internal/application"
	"github.com/example/class-timetable/internal/scheduler"
)

// GatewayOp names an EntryGateway method for failure injection and call counting.
type GatewayOp string

const (
	OpGetByClass GatewayOp = "get_by_class"
	OpCreate     GatewayOp = "create"
	OpUpdate     GatewayOp = "update"
	OpDelete     GatewayOp = "delete"
)

// MemoryGateway is an in-memory application.EntryGateway with failure injection.
type MemoryGateway struct {
	mu       sync.Mutex
	ids      *IDGenerator
	entries  map[string]scheduler.Entry
	failures map[GatewayOp]error
	hangs    map[GatewayOp]bool
	calls    map[GatewayOp]int
}

var _ application.EntryGateway = (*MemoryGateway)(nil)

// NewMemoryGateway returns a gateway holding seed. A nil ids generator assigns
// "entry-<n>" identifiers.
func NewMemoryGateway(ids *IDGenerator, seed ...scheduler.Entry) *MemoryGateway {
	if ids == nil {
		ids = NewIDGenerator("entry")
	}
	g := &MemoryGateway{
		ids:      ids,
		entries:  make(map[string]scheduler.Entry),
		failures: make(map[GatewayOp]error),
		hangs:    make(map[GatewayOp]bool),
		calls:    make(map[GatewayOp]int),
	}
	g.Seed(seed...)
	return g
}

// Seed stores entries verbatim, bypassing every check, so tests can plant corrupt data.
func (g *MemoryGateway) Seed(entries ...scheduler.Entry) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, entry := range entries {
		g.entries[entry.ID] = entry
	}
}

// Remove drops an entry behind the store's back, simulating another writer.
func (g *MemoryGateway) Remove(id string) {
	g.mu.Lock()
	delete(g.entries, id)
	g.mu.Unlock()
}

// Fail makes every call of op return err until Recover is called.
func (g *MemoryGateway) Fail(op GatewayOp, err error) {
	g.mu.Lock()
	g.failures[op] = err
	g.mu.Unlock()
}

// Hang makes every call of op block until its context is done.
func (g *MemoryGateway) Hang(op GatewayOp) {
	g.mu.Lock()
	g.hangs[op] = true
	g.mu.Unlock()
}

// Recover clears injected failures and hangs for op.
func (g *MemoryGateway) Recover(op GatewayOp) {
	g.mu.Lock()
	delete(g.failures, op)
	delete(g.hangs, op)
	g.mu.Unlock()
}

// Calls reports how many times op was invoked.
func (g *MemoryGateway) Calls(op GatewayOp) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[op]
}

// Entries returns the stored entries of className ordered by start.
func (g *MemoryGateway) Entries(className string) []scheduler.Entry {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.classEntriesLocked(className)
}

func (g *MemoryGateway) GetByClass(ctx context.Context, className string) ([]scheduler.Entry, error) {
	if err := g.begin(ctx, OpGetByClass); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.classEntriesLocked(className), nil
}

func (g *MemoryGateway) Create(ctx context.Context, entry scheduler.Entry) (scheduler.Entry, error) {
	if err := g.begin(ctx, OpCreate); err != nil {
		return scheduler.Entry{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	entry.ID = g.ids.Next()
	g.entries[entry.ID] = entry
	return entry, nil
}

func (g *MemoryGateway) UpdateTimeAndLocation(ctx context.Context, id string, update application.TimeLocationUpdate) (scheduler.Entry, error) {
	if err := g.begin(ctx, OpUpdate); err != nil {
		return scheduler.Entry{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	entry, ok := g.entries[id]
	if !ok {
		return scheduler.Entry{}, fmt.Errorf("entry %s: %w", id, application.ErrNotFound)
	}
	if update.StartAt != nil {
		entry.StartAt = *update.StartAt
	}
	if update.EndAt != nil {
		entry.EndAt = *update.EndAt
	}
	if update.Room != nil {
		entry.Room = *update.Room
	}
	if update.ZoomID != nil {
		entry.ZoomID = *update.ZoomID
	}
	g.entries[id] = entry
	return entry, nil
}

func (g *MemoryGateway) Delete(ctx context.Context, id string) error {
	if err := g.begin(ctx, OpDelete); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.entries[id]; !ok {
		return fmt.Errorf("entry %s: %w", id, application.ErrNotFound)
	}
	delete(g.entries, id)
	return nil
}

func (g *MemoryGateway) begin(ctx context.Context, op GatewayOp) error {
	g.mu.Lock()
	g.calls[op]++
	err := g.failures[op]
	hang := g.hangs[op]
	g.mu.Unlock()

	if hang {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (g *MemoryGateway) classEntriesLocked(className string) []scheduler.Entry {
	out := make([]scheduler.Entry, 0)
	for _, entry := range g.entries {
		if entry.ClassName == className {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartAt.Equal(out[j].StartAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartAt.Before(out[j].StartAt)
	})
	return out
}
