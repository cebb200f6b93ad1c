package reconcile

import (
	"context"
	"io"
	"time"

	"github.com/spf13/afero"
	"github.com/xiaoyuanzhu-com/flowtrack/db"
)

// RunKind identifies what a sync run does
type RunKind string

const (
	RunExport RunKind = "export"
	RunImport RunKind = "import"
	RunScan   RunKind = "scan"
)

// EventKind is the type of a run event
type EventKind string

const (
	EventProgress  EventKind = "progress"
	EventCompleted EventKind = "completed"
	EventFailed    EventKind = "failed"
)

// Event reports run progress. Every run ends with exactly one completed or
// failed event; progress events before it have strictly increasing Done.
type Event struct {
	RunID string
	Run   RunKind
	Kind  EventKind
	Done  int
	Total int
	Count int   // Files handled, set on completion
	Err   error // Set on failure
}

// Sink receives run events, in order, from the run's worker goroutine
type Sink func(Event)

// ProgressFunc is called after each file with the running and expected counts
type ProgressFunc func(done, total int)

// RunStatus describes the active run
type RunStatus struct {
	ID        string    `json:"id"`
	Kind      RunKind   `json:"kind"`
	Done      int       `json:"done"`
	Total     int       `json:"total"`
	StartedAt time.Time `json:"startedAt"`
}

// Repository is the local side of a sync run
type Repository interface {
	Root() string
	Fs() afero.Fs
	ProjectDir(project string) string
	ProjectFiles(project string) ([]string, error)
	ReceiveFile(ctx context.Context, project, name string, fill func(w io.Writer) error) error
	ImportSnapshot(ctx context.Context, project, source, note string) (string, error)
}

// Recorder persists run history
type Recorder interface {
	InsertSyncRun(run db.SyncRun) error
	UpdateSyncRunProgress(id string, done, total int) error
	FinishSyncRun(id, status string, done int, errMsg, errKind string) error
}
