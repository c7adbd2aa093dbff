package models

// Status is the lifecycle state of a PhotoTask. Ready and Error are terminal.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusReading   Status = "reading"
	StatusGeocoding Status = "geocoding"
	StatusDrawing   Status = "drawing"
	StatusReady     Status = "ready"
	StatusError     Status = "error"
)

// Event advances a task's Status.
type Event string

const (
	EventStart     Event = "start"     // idle -> reading
	EventExtracted Event = "extracted" // reading -> geocoding
	EventResolved  Event = "resolved"  // geocoding -> drawing
	EventRendered  Event = "rendered"  // drawing -> ready
	EventFailed    Event = "failed"    // any non-terminal -> error
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusError
}
