package shutdown

import (
	"os"
	"sort"
	"syscall"
)

// Event names a process lifecycle event that can start the shutdown sequence. The value doubles as the log label.
type Event string

const (
	// EventTerminate is an operating system request to stop gracefully.
	EventTerminate Event = "SIGTERM"
	// EventInterrupt is a user interrupt, usually Ctrl-C.
	EventInterrupt Event = "SIGINT"
	// EventUncaughtFault is a panic that reached the top of a guarded goroutine.
	EventUncaughtFault Event = "uncaughtException"
	// EventUnhandledRejection is an error returned by a background goroutine that nobody waits on.
	EventUnhandledRejection Event = "unhandledRejection"
	// EventExit is the process leaving through ordinary control flow.
	EventExit Event = "exit"
)

// Fatal reports whether the event always terminates the process with status 1, even after a successful cleanup.
func (e Event) Fatal() bool {
	return e == EventUncaughtFault || e == EventUnhandledRejection
}

func (e Event) String() string {
	return string(e)
}

// EventHandler reacts to a single lifecycle event.
type EventHandler func(Event)

// EventTable maps every lifecycle event to the handler installed for it.
type EventTable map[Event]EventHandler

// Events returns the events of the table in a stable order.
func (t EventTable) Events() []Event {
	events := make([]Event, 0, len(t))
	for event := range t {
		events = append(events, event)
	}
	sort.Slice(events, func(i, j int) bool { return events[i] < events[j] })

	return events
}

// DefaultSignals is the signal to event mapping installed unless WithSignals overrides it.
func DefaultSignals() map[os.Signal]Event {
	return map[os.Signal]Event{
		syscall.SIGTERM: EventTerminate,
		os.Interrupt:    EventInterrupt,
	}
}
