package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/class-timetable/internal/application"
	"github.com/example/class-timetable/internal/scheduler"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("entry"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("entry")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// Timetable bundles a store wired to in-memory collaborators.
type Timetable struct {
	Gateway    *MemoryGateway
	Dispatcher *RecordingDispatcher
	Bridge     *application.NotificationBridge
	Store      *application.ScheduleStore
	Relocation *application.RelocationEngine
}

// TimetableDeps customises NewTimetable. Zero values select UTC, no ttl and an
// audience of ["student-1", "student-2"] for every class in Seed.
type TimetableDeps struct {
	Seed           []scheduler.Entry
	Location       *time.Location
	Audience       application.AudienceDirectory
	CacheTTL       time.Duration
	GatewayTimeout time.Duration
	Logger         *slog.Logger
}

// NewTimetable builds a store, relocation engine and notification bridge around a
// memory gateway and a recording dispatcher.
func (f *ServiceFactory) NewTimetable(deps TimetableDeps) *Timetable {
	gateway := NewMemoryGateway(f.IDGenerator, deps.Seed...)
	dispatcher := NewRecordingDispatcher()

	audience := deps.Audience
	if audience == nil {
		members := map[string][]string{"10A": {"student-1", "student-2"}}
		for _, entry := range deps.Seed {
			members[entry.ClassName] = []string{"student-1", "student-2"}
		}
		audience = StaticAudience{Members: members}
	}

	bridge := application.NewNotificationBridge(dispatcher, audience, application.BridgeOptions{
		Location: deps.Location,
		Logger:   deps.Logger,
	})
	store := application.NewScheduleStore(gateway, application.StoreOptions{
		Normalizer:     scheduler.NewNormalizer(deps.Location),
		Listener:       bridge,
		GatewayTimeout: deps.GatewayTimeout,
		CacheTTL:       deps.CacheTTL,
		Now:            f.Clock.NowFunc(),
		Logger:         deps.Logger,
	})
	return &Timetable{
		Gateway:    gateway,
		Dispatcher: dispatcher,
		Bridge:     bridge,
		Store:      store,
		Relocation: application.NewRelocationEngine(store, deps.Logger),
	}
}
