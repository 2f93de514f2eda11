package scraper

// TaskState tracks a fetch task through its lifecycle.
type TaskState int

const (
	TaskPending TaskState = iota
	TaskInFlight
	TaskRetrying
	TaskSucceeded
	TaskFailed
)

func (s TaskState) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskInFlight:
		return "in_flight"
	case TaskRetrying:
		return "retrying"
	case TaskSucceeded:
		return "succeeded"
	case TaskFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Task is one unit of work: fetch and ingest a single search-results page.
type Task struct {
	Product  string
	Page     int
	State    TaskState
	Attempts int
	LastErr  error
}
