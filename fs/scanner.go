package fs

import (
	"os"
	"sort"

	"github.com/spf13/afero"
	"github.com/xiaoyuanzhu-com/flowtrack/apperrors"
)

// ListProjects returns the project folders under the root in directory order.
// The root is created when missing.
func (s *Service) ListProjects() ([]string, error) {
	if err := s.fs.MkdirAll(s.cfg.Root, 0755); err != nil {
		return nil, apperrors.IO("listProjects", err, "cannot create repository root")
	}

	entries, err := afero.ReadDir(s.fs, s.cfg.Root)
	if err != nil {
		return nil, apperrors.IO("listProjects", err, "cannot read repository root")
	}

	projects := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || s.listingFilter.IsExcludedName(e.Name()) {
			continue
		}
		projects = append(projects, e.Name())
	}
	return projects, nil
}

// ListVersions returns a project's versions: present first, then snapshots
// newest first, then snapshots without a parsable timestamp.
// A missing project yields an empty list.
func (s *Service) ListVersions(project string) ([]Version, error) {
	if err := ValidateProjectName(project); err != nil {
		return nil, err
	}

	entries, err := afero.ReadDir(s.fs, s.ProjectDir(project))
	if err != nil {
		if os.IsNotExist(err) {
			return []Version{}, nil
		}
		return nil, apperrors.IO("listVersions", err, "cannot read project %q", project)
	}

	notes := make(map[string]bool)
	for _, e := range entries {
		if !e.IsDir() {
			notes[e.Name()] = true
		}
	}

	present := PresentName(project)
	versions := make([]Version, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !IsProjectFile(name) || s.listingFilter.IsExcludedName(name) {
			continue
		}
		v := Version{
			Name:    name,
			Present: name == present,
			Size:    e.Size(),
			HasNote: notes[NoteName(name)],
		}
		if !v.Present {
			if ts, ok := ParseTimestamp(name); ok {
				v.Timestamp = ts
			}
		}
		versions = append(versions, v)
	}

	SortVersions(versions)
	return versions, nil
}

// SortVersions orders versions canonically in place
func SortVersions(versions []Version) {
	sort.SliceStable(versions, func(i, j int) bool {
		a, b := versions[i], versions[j]
		if a.Present != b.Present {
			return a.Present
		}
		if a.HasTimestamp() != b.HasTimestamp() {
			return a.HasTimestamp()
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return a.Name < b.Name
	})
}

// HasPresent reports whether the project's present version exists
func (s *Service) HasPresent(project string) bool {
	ok, _ := afero.Exists(s.fs, s.VersionPath(project, PresentName(project)))
	return ok
}

// ProjectExists reports whether the project folder exists
func (s *Service) ProjectExists(project string) bool {
	ok, _ := afero.DirExists(s.fs, s.ProjectDir(project))
	return ok
}
