package scan

import (
	"time"

	"github.com/google/uuid"

	"github.com/skelsey/galmarket/internal/model"
)

// State is a scan's lifecycle stage. It is always derived from live
// completion data, never stored. A scan has no failed state; individual
// task failures stay visible in the status report instead.
type State int

const (
	StateCreated State = iota
	StateRunning
	StateComplete
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateRunning:
		return "Running"
	case StateComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// TaskRecord ties a dispatched population task to the shell and batch
// it covers.
type TaskRecord struct {
	ID      uuid.UUID `json:"id"`
	Shell   int       `json:"shell"`
	Systems []string  `json:"systems"`
}

// ScanRequest is the persisted record of one scan: its parameters, the
// full system list found at start time, and the dispatched tasks.
type ScanRequest struct {
	ID            uuid.UUID      `json:"id"`
	Origin        string         `json:"origin"`
	InitialRadius float64        `json:"initial_radius"`
	MaxRadius     float64        `json:"max_radius"`
	CreatedAt     time.Time      `json:"created_at"`
	Systems       []model.System `json:"systems"`
	Tasks         []TaskRecord   `json:"tasks"`
}

// StatusReport is the live view of a scan's progress. Completion counts
// come from the freshness cache at call time, so a system invalidated by
// the feed after its task finished shows up as Partial again.
type StatusReport struct {
	ID       uuid.UUID `json:"id"`
	State    State     `json:"state"`
	Total    int       `json:"total"`
	Complete int       `json:"complete"`
	Partial  int       `json:"partial"`
	Pending  int       `json:"pending"`
	Percent  float64   `json:"percent"`

	// Tasks groups dispatched tasks by queue status name. Tasks whose
	// records aged out of the queue appear under "Expired".
	Tasks map[string]int `json:"tasks"`

	// Unfinished lists the systems that are not Complete, nearest first.
	Unfinished []string `json:"unfinished"`
}
