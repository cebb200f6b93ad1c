package fs

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Category represents a category of files/directories to exclude
type Category int

const (
	// CategoryHidden - dotfiles and dotdirs, including in-flight temp files
	CategoryHidden Category = 1 << iota

	// CategoryBackup - editor backup and swap files (~file, *.bak, *.swp)
	CategoryBackup

	// CategoryOS - OS-generated files (.DS_Store, Thumbs.db, etc.)
	CategoryOS

	// CategoryTransient - the DAW's own "Backup ... (overwritten at 2h15)" files
	CategoryTransient
)

// Common presets for different use cases
const (
	// ExcludeNone - no exclusions
	ExcludeNone Category = 0

	// ExcludeForListing - entries hidden from project listings
	ExcludeForListing = CategoryHidden | CategoryOS

	// ExcludeForWatch - paths the watcher ignores
	ExcludeForWatch = CategoryHidden | CategoryBackup | CategoryOS

	// ExcludeForExport - files never uploaded to the mirror
	ExcludeForExport = CategoryTransient
)

var transientOverwritePattern = regexp.MustCompile(`^Backup.*\(overwritten at \d{1,2}h\d{2}\)`)

// IsTransientOverwrite reports whether a file name is an auto-generated
// overwrite backup that must never be exported
func IsTransientOverwrite(name string) bool {
	return transientOverwritePattern.MatchString(name)
}

// PathFilter handles file/directory exclusion checks
type PathFilter struct {
	exclusions Category
}

// NewPathFilter creates a new PathFilter with the specified exclusion categories
func NewPathFilter(exclusions Category) *PathFilter {
	return &PathFilter{exclusions: exclusions}
}

// IsExcluded checks if a path should be excluded based on any path component
func (f *PathFilter) IsExcluded(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "" || part == "." {
			continue
		}
		if f.IsExcludedName(part) {
			return true
		}
	}
	return false
}

// IsExcludedName checks a single file or directory name
func (f *PathFilter) IsExcludedName(name string) bool {
	lower := strings.ToLower(name)

	if f.exclusions&CategoryHidden != 0 {
		if strings.HasPrefix(name, ".") && name != "." {
			return true
		}
	}

	if f.exclusions&CategoryBackup != 0 {
		if strings.HasPrefix(name, "~") || strings.HasSuffix(name, "~") {
			return true
		}
		if hasAnySuffix(lower, backupSuffixes) {
			return true
		}
	}

	if f.exclusions&CategoryOS != 0 {
		if osNames[lower] || hasAnyPrefix(name, osPrefixes) {
			return true
		}
	}

	if f.exclusions&CategoryTransient != 0 {
		if IsTransientOverwrite(name) {
			return true
		}
	}

	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

var backupSuffixes = []string{
	".bak",
	".swp",
	".swo",
	".tmp",
	".temp",
}

var osNames = map[string]bool{
	// macOS
	".ds_store":       true,
	".spotlight-v100": true,
	".trashes":        true,
	".fseventsd":      true,
	// Windows
	"thumbs.db":                 true,
	"desktop.ini":               true,
	"$recycle.bin":              true,
	"system volume information": true,
	// Linux
	"lost+found": true,
}

var osPrefixes = []string{
	// macOS resource forks
	"._",
	// Office lock files
	"~$",
}
