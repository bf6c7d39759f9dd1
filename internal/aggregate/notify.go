package aggregate

// EventType identifies the stage of an aggregation run.
type EventType string

const (
	EventLoading EventType = "loading"
	EventDone    EventType = "done"
	EventFailed  EventType = "failed"
)

// Event is a status notification about one aggregation run. All events of a
// run share the same RunID.
type Event struct {
	Type     EventType `json:"type"`
	RunID    string    `json:"runId"`
	Root     string    `json:"root"`
	Message  string    `json:"message,omitempty"`
	Included int       `json:"included"`
	Skipped  int       `json:"skipped"`
	Complete bool      `json:"complete"`
	Size     int       `json:"size"`
	Budget   int       `json:"budget"`
}

// Notifier receives status events. Notify must not block for long; the
// aggregator calls it synchronously.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Event)

// Notify calls f(e).
func (f NotifierFunc) Notify(e Event) { f(e) }
