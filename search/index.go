// Package search answers case-insensitive substring queries over project
// names, version file names and note text.
package search

import (
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/xiaoyuanzhu-com/flowtrack/fs"
	"github.com/xiaoyuanzhu-com/flowtrack/log"
)

// Source is the repository view the index is built from
type Source interface {
	ListProjects() ([]string, error)
	ListVersions(project string) ([]fs.Version, error)
	ReadNote(project, version string) (string, error)
	Generation() uint64
}

// projectEntry holds the folded text of one project
type projectEntry struct {
	name     string
	folded   string
	versions []string
	notes    []string
}

func (e *projectEntry) matches(q string) bool {
	if strings.Contains(e.folded, q) {
		return true
	}
	for _, v := range e.versions {
		if strings.Contains(v, q) {
			return true
		}
	}
	for _, n := range e.notes {
		if strings.Contains(n, q) {
			return true
		}
	}
	return false
}

// Index is a disposable, lazily rebuilt snapshot of the repository
type Index struct {
	src Source

	mu         sync.Mutex
	entries    []projectEntry
	generation uint64
	built      bool
}

// NewIndex creates an index over src. Nothing is read until the first query.
func NewIndex(src Source) *Index {
	return &Index{src: src}
}

// Invalidate forces a rebuild on the next query
func (idx *Index) Invalidate() {
	idx.mu.Lock()
	idx.built = false
	idx.mu.Unlock()
}

// FilterProjects returns the projects whose name, version names or notes
// contain query, ignoring case, in discovery order. An empty query returns
// every project; whitespace is matched literally.
func (idx *Index) FilterProjects(query string) ([]string, error) {
	if query == "" {
		return idx.src.ListProjects()
	}

	entries, err := idx.snapshot()
	if err != nil {
		return nil, err
	}

	q := fold(query)
	matched := make([]string, 0)
	for i := range entries {
		if entries[i].matches(q) {
			matched = append(matched, entries[i].name)
		}
	}
	return matched, nil
}

// FilterVersions returns the versions of project whose name or note contains
// query, ignoring case, in canonical order. It always reads from disk.
func (idx *Index) FilterVersions(project, query string) ([]fs.Version, error) {
	versions, err := idx.src.ListVersions(project)
	if err != nil {
		return nil, err
	}
	if query == "" {
		return versions, nil
	}

	q := fold(query)
	matched := make([]fs.Version, 0, len(versions))
	for _, v := range versions {
		if strings.Contains(fold(v.Name), q) {
			matched = append(matched, v)
			continue
		}
		note, err := idx.src.ReadNote(project, v.Name)
		if err != nil {
			return nil, err
		}
		if strings.Contains(fold(note), q) {
			matched = append(matched, v)
		}
	}
	return matched, nil
}

// snapshot returns the current entries, rebuilding them when stale
func (idx *Index) snapshot() ([]projectEntry, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	gen := idx.src.Generation()
	if idx.built && gen == idx.generation {
		return idx.entries, nil
	}

	entries, err := idx.build()
	if err != nil {
		return nil, err
	}
	idx.entries = entries
	idx.generation = gen
	idx.built = true

	log.Debug().Int("projects", len(entries)).Uint64("generation", gen).Msg("search index rebuilt")
	return entries, nil
}

func (idx *Index) build() ([]projectEntry, error) {
	projects, err := idx.src.ListProjects()
	if err != nil {
		return nil, err
	}

	caser := cases.Fold()
	entries := make([]projectEntry, 0, len(projects))
	for _, p := range projects {
		versions, err := idx.src.ListVersions(p)
		if err != nil {
			return nil, err
		}

		e := projectEntry{name: p, folded: caser.String(p)}
		present := fs.PresentName(p)
		names := make([]string, 0, len(versions)+1)
		hasPresent := false
		for _, v := range versions {
			names = append(names, v.Name)
			hasPresent = hasPresent || v.Present
		}
		// The present note is indexed even when its .flp is missing
		if !hasPresent {
			names = append(names, present)
		}

		for _, name := range names {
			e.versions = append(e.versions, caser.String(name))
			note, err := idx.src.ReadNote(p, name)
			if err != nil {
				return nil, err
			}
			if note != "" {
				e.notes = append(e.notes, caser.String(note))
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// fold applies Unicode case folding; a Caser is not safe for concurrent use
func fold(s string) string {
	return cases.Fold().String(s)
}
