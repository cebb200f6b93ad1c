package fs

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/xiaoyuanzhu-com/flowtrack/apperrors"
)

const (
	// Ext is the project file extension
	Ext = ".flp"

	// NoteExt is the extension of the note stored next to each version
	NoteExt = ".txt"

	// TimestampLayout formats snapshot timestamps with minute precision
	TimestampLayout = "2006-01-02_15-04"

	// DefaultProjectNote is written when a new project gets an empty note
	DefaultProjectNote = "(No notes)"

	// ScannedNote is written for scanned snapshots without a matching note
	ScannedNote = "(Scanned version - no notes)"
)

var timestampPattern = regexp.MustCompile(`_(\d{4}-\d{2}-\d{2}_\d{2}-\d{2})`)

// PresentName returns the file name of a project's present version
func PresentName(project string) string {
	return project + Ext
}

// SnapshotName returns the file name of a snapshot taken at t
func SnapshotName(project string, t time.Time) string {
	return project + "_" + t.Format(TimestampLayout) + Ext
}

// NoteName returns the note file name bound to a version
func NoteName(version string) string {
	return strings.TrimSuffix(version, Ext) + NoteExt
}

// ParseTimestamp extracts the snapshot time from a version file name. The
// first timestamp anywhere in the name counts, so renamed copies keep theirs.
func ParseTimestamp(version string) (time.Time, bool) {
	base := strings.TrimSuffix(version, Ext)
	m := timestampPattern.FindStringSubmatch(base)
	if m == nil {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(TimestampLayout, m[1], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ProjectNameFromFile derives a project name from a .flp path
func ProjectNameFromFile(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// IsProjectFile reports whether name has the project file extension
func IsProjectFile(name string) bool {
	return strings.HasSuffix(name, Ext)
}

// ValidateProjectName rejects empty and path-like project names
func ValidateProjectName(name string) error {
	if err := validateName(name); err != nil {
		return apperrors.Validation("", "invalid project name %q", name)
	}
	return nil
}

// ValidateVersionName rejects version names that are not plain .flp file names
func ValidateVersionName(version string) error {
	if err := validateName(version); err != nil || !IsProjectFile(version) {
		return apperrors.Validation("", "invalid version name %q", version)
	}
	return nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}
	if name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return ErrInvalidName
	}
	if strings.ContainsAny(name, `/\`+"\x00") {
		return ErrInvalidName
	}
	return nil
}
