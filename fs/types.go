package fs

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
)

// Version is one .flp file inside a project folder
type Version struct {
	Name      string    `json:"name"`                // File name, e.g. "kick_2024-03-01_10-15.flp"
	Present   bool      `json:"present"`             // True for <project>.flp
	Timestamp time.Time `json:"timestamp,omitempty"` // Parsed snapshot time, zero if unparsable or present
	Size      int64     `json:"size"`
	HasNote   bool      `json:"hasNote"`
}

// HasTimestamp reports whether the snapshot name carried a parsable timestamp
func (v Version) HasTimestamp() bool {
	return !v.Timestamp.IsZero()
}

// CreateProjectRequest describes a new project
type CreateProjectRequest struct {
	Name     string
	Template string  // Path of the template .flp to copy
	Note     *string // nil writes no note; empty text writes the default note
}

// ChangeEvent notifies about repository changes
type ChangeEvent struct {
	Project string
	Version string // Empty for project-level changes
	Op      string // "create", "snapshot", "revert", "delete", "note", "import", "external"
	Trigger string // "api", "sync", "fsnotify"
}

// ChangeHandler is called when the repository changes
type ChangeHandler func(event ChangeEvent)

// Config contains configuration for the repository service
type Config struct {
	Root         string          // Repository root, one folder per project
	FS           afero.Fs        // Defaults to the OS file system
	Clock        clockwork.Clock // Defaults to the real clock
	WatchEnabled bool            // Watch the root for external edits (OS file system only)
}
