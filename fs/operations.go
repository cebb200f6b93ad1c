package fs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/xiaoyuanzhu-com/flowtrack/apperrors"
	"github.com/xiaoyuanzhu-com/flowtrack/log"
)

// Upper bound for minute bumps when picking a free snapshot name
const maxSnapshotNameAttempts = 24 * 60

// CreateProject creates <root>/<name>/<name>.flp from a template
func (s *Service) CreateProject(ctx context.Context, req CreateProjectRequest) error {
	const op = "createProject"
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateProjectName(req.Name); err != nil {
		return err
	}

	mu := s.locks.acquire(req.Name)
	defer mu.Unlock()

	dir := s.ProjectDir(req.Name)
	if info, err := s.fs.Stat(dir); err == nil && !info.IsDir() {
		return apperrors.Validation(op, "%q already exists and is not a project folder", req.Name)
	}
	if s.HasPresent(req.Name) {
		return apperrors.Precondition(op, "project %q already has a present version", req.Name)
	}

	if ok, _ := afero.Exists(s.fs, req.Template); !ok {
		return apperrors.IO(op, os.ErrNotExist, "cannot read template %q", req.Template)
	}

	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return apperrors.IO(op, err, "cannot create project folder")
	}

	present := PresentName(req.Name)
	if err := s.copyFileAtomic(req.Template, s.VersionPath(req.Name, present)); err != nil {
		return apperrors.IO(op, err, "cannot copy template")
	}

	if req.Note != nil {
		text := strings.TrimSpace(*req.Note)
		if text == "" {
			text = DefaultProjectNote
		}
		if err := s.writeNote(req.Name, present, text); err != nil {
			return apperrors.IO(op, err, "cannot write note")
		}
	}

	log.Info().Str("project", req.Name).Str("template", req.Template).Msg("project created")
	s.changed(ChangeEvent{Project: req.Name, Version: present, Op: "create", Trigger: "api"})
	return nil
}

// CreateSnapshot copies the present version to <project>_<now>.flp and
// returns the snapshot name. A snapshot taken in the same minute is replaced.
func (s *Service) CreateSnapshot(ctx context.Context, project string, note *string) (string, error) {
	const op = "createSnapshot"
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := ValidateProjectName(project); err != nil {
		return "", err
	}

	mu := s.locks.acquire(project)
	defer mu.Unlock()

	if !s.HasPresent(project) {
		return "", &apperrors.Error{Kind: apperrors.KindPrecondition, Op: op, Err: ErrNoPresentVersion}
	}

	snapshot := SnapshotName(project, s.clock.Now())
	src := s.VersionPath(project, PresentName(project))
	if err := s.copyFileAtomic(src, s.VersionPath(project, snapshot)); err != nil {
		return "", apperrors.IO(op, err, "cannot copy present version")
	}

	if note != nil {
		if err := s.writeNote(project, snapshot, strings.TrimSpace(*note)); err != nil {
			return "", apperrors.IO(op, err, "cannot write note")
		}
	}

	log.Info().Str("project", project).Str("version", snapshot).Msg("snapshot created")
	s.changed(ChangeEvent{Project: project, Version: snapshot, Op: "snapshot", Trigger: "api"})
	return snapshot, nil
}

// Revert overwrites the present version with a snapshot's bytes.
// The present file is replaced atomically; notes are left alone.
func (s *Service) Revert(ctx context.Context, project, snapshot string) error {
	const op = "revert"
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateProjectName(project); err != nil {
		return err
	}
	if err := ValidateVersionName(snapshot); err != nil {
		return err
	}
	present := PresentName(project)
	if snapshot == present {
		return &apperrors.Error{Kind: apperrors.KindPrecondition, Op: op, Message: "cannot revert to the present version", Err: ErrPresentVersion}
	}

	mu := s.locks.acquire(project)
	defer mu.Unlock()

	if ok, _ := afero.Exists(s.fs, s.VersionPath(project, snapshot)); !ok {
		return &apperrors.Error{Kind: apperrors.KindNotFound, Op: op, Message: "snapshot " + snapshot + " not found", Err: ErrVersionNotFound}
	}
	if !s.HasPresent(project) {
		return &apperrors.Error{Kind: apperrors.KindNotFound, Op: op, Message: "present version of " + project + " not found", Err: ErrVersionNotFound}
	}

	if err := s.copyFileAtomic(s.VersionPath(project, snapshot), s.VersionPath(project, present)); err != nil {
		return apperrors.IO(op, err, "cannot replace present version")
	}

	log.Info().Str("project", project).Str("version", snapshot).Msg("reverted to snapshot")
	s.changed(ChangeEvent{Project: project, Version: present, Op: "revert", Trigger: "api"})
	return nil
}

// DeleteSnapshot removes a snapshot and its note
func (s *Service) DeleteSnapshot(ctx context.Context, project, snapshot string) error {
	const op = "deleteSnapshot"
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateProjectName(project); err != nil {
		return err
	}
	if err := ValidateVersionName(snapshot); err != nil {
		return err
	}
	if snapshot == PresentName(project) {
		return &apperrors.Error{Kind: apperrors.KindPrecondition, Op: op, Message: "the present version cannot be deleted", Err: ErrPresentVersion}
	}

	mu := s.locks.acquire(project)
	defer mu.Unlock()

	path := s.VersionPath(project, snapshot)
	if ok, _ := afero.Exists(s.fs, path); !ok {
		return &apperrors.Error{Kind: apperrors.KindNotFound, Op: op, Message: "snapshot " + snapshot + " not found", Err: ErrVersionNotFound}
	}
	if err := s.fs.Remove(s.VersionPath(project, NoteName(snapshot))); err != nil && !os.IsNotExist(err) {
		return apperrors.IO(op, err, "cannot delete note of %q", snapshot)
	}
	if err := s.fs.Remove(path); err != nil {
		return apperrors.IO(op, err, "cannot delete snapshot")
	}

	log.Info().Str("project", project).Str("version", snapshot).Msg("snapshot deleted")
	s.changed(ChangeEvent{Project: project, Version: snapshot, Op: "delete", Trigger: "api"})
	return nil
}

// DeleteProject removes a project folder and everything in it
func (s *Service) DeleteProject(ctx context.Context, project string) error {
	const op = "deleteProject"
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateProjectName(project); err != nil {
		return err
	}

	mu := s.locks.acquire(project)
	defer mu.Unlock()

	if !s.ProjectExists(project) {
		return &apperrors.Error{Kind: apperrors.KindNotFound, Op: op, Message: "project " + project + " not found", Err: ErrProjectNotFound}
	}
	if err := s.fs.RemoveAll(s.ProjectDir(project)); err != nil {
		return apperrors.IO(op, err, "cannot delete project")
	}

	log.Info().Str("project", project).Msg("project deleted")
	s.changed(ChangeEvent{Project: project, Op: "delete", Trigger: "api"})
	return nil
}

// AdoptExternalFile brings an outside .flp under version control.
// The project is named after the file. A missing present version is created
// from the file, and a snapshot of it is always taken.
func (s *Service) AdoptExternalFile(ctx context.Context, source string, note *string) (project, snapshot string, err error) {
	const op = "adoptExternalFile"
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	if !strings.EqualFold(filepath.Ext(source), Ext) {
		return "", "", apperrors.Validation(op, "%q is not a %s file", filepath.Base(source), Ext)
	}
	project = ProjectNameFromFile(source)
	if err := ValidateProjectName(project); err != nil {
		return "", "", err
	}
	if info, statErr := s.fs.Stat(source); statErr != nil || info.IsDir() {
		return "", "", apperrors.NotFound(op, "source file %q not found", source)
	}

	mu := s.locks.acquire(project)
	defer mu.Unlock()

	dir := s.ProjectDir(project)
	if info, statErr := s.fs.Stat(dir); statErr == nil && !info.IsDir() {
		return "", "", apperrors.Validation(op, "%q already exists and is not a project folder", project)
	}
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return "", "", apperrors.IO(op, err, "cannot create project folder")
	}

	if !s.HasPresent(project) {
		if err := s.copyFileAtomic(source, s.VersionPath(project, PresentName(project))); err != nil {
			return "", "", apperrors.IO(op, err, "cannot create present version")
		}
	}

	snapshot = SnapshotName(project, s.clock.Now())
	if err := s.copyFileAtomic(source, s.VersionPath(project, snapshot)); err != nil {
		return "", "", apperrors.IO(op, err, "cannot create snapshot")
	}
	if note != nil {
		if err := s.writeNote(project, snapshot, strings.TrimSpace(*note)); err != nil {
			return "", "", apperrors.IO(op, err, "cannot write note")
		}
	}

	log.Info().Str("project", project).Str("version", snapshot).Str("source", source).Msg("external file adopted")
	s.changed(ChangeEvent{Project: project, Version: snapshot, Op: "snapshot", Trigger: "api"})
	return project, snapshot, nil
}

// ImportSnapshot stores source as a new snapshot of project, never as the
// present version. If the current minute is taken the timestamp is moved
// forward until the name is free.
func (s *Service) ImportSnapshot(ctx context.Context, project, source, note string) (string, error) {
	const op = "importSnapshot"
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := ValidateProjectName(project); err != nil {
		return "", err
	}

	mu := s.locks.acquire(project)
	defer mu.Unlock()

	if err := s.fs.MkdirAll(s.ProjectDir(project), 0755); err != nil {
		return "", apperrors.IO(op, err, "cannot create project folder")
	}

	snapshot, err := s.freeSnapshotName(project)
	if err != nil {
		return "", err
	}
	if err := s.copyFileAtomic(source, s.VersionPath(project, snapshot)); err != nil {
		return "", apperrors.IO(op, err, "cannot copy %q", source)
	}
	if err := s.writeNote(project, snapshot, note); err != nil {
		return "", apperrors.IO(op, err, "cannot write note")
	}

	log.Debug().Str("project", project).Str("version", snapshot).Str("source", source).Msg("snapshot imported")
	s.changed(ChangeEvent{Project: project, Version: snapshot, Op: "import", Trigger: "sync"})
	return snapshot, nil
}

// ReceiveFile writes a file named name into a project folder, creating the
// folder when needed. The file is replaced atomically once fill succeeds.
func (s *Service) ReceiveFile(ctx context.Context, project, name string, fill func(w io.Writer) error) error {
	const op = "receiveFile"
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateProjectName(project); err != nil {
		return err
	}
	if err := validateName(name); err != nil {
		return apperrors.Validation(op, "invalid file name %q", name)
	}

	mu := s.locks.acquire(project)
	defer mu.Unlock()

	if err := s.fs.MkdirAll(s.ProjectDir(project), 0755); err != nil {
		return apperrors.IO(op, err, "cannot create project folder")
	}
	if err := s.writeFileAtomic(s.VersionPath(project, name), fill); err != nil {
		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			return err
		}
		return apperrors.IO(op, err, "cannot write %q", name)
	}

	s.changed(ChangeEvent{Project: project, Version: name, Op: "import", Trigger: "sync"})
	return nil
}

// ProjectFiles lists every regular file under a project folder, as
// slash-separated paths relative to it, in walk order.
// A missing project yields an empty list.
func (s *Service) ProjectFiles(project string) ([]string, error) {
	if err := ValidateProjectName(project); err != nil {
		return nil, err
	}

	dir := s.ProjectDir(project)
	if !s.ProjectExists(project) {
		return []string{}, nil
	}

	var files []string
	err := afero.Walk(s.fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, apperrors.IO("projectFiles", err, "cannot walk project %q", project)
	}
	return files, nil
}

// freeSnapshotName picks <project>_<ts>.flp starting at now, bumping by a
// minute while the name is taken. Caller holds the project lock.
func (s *Service) freeSnapshotName(project string) (string, error) {
	ts := s.clock.Now()
	for i := 0; i < maxSnapshotNameAttempts; i++ {
		name := SnapshotName(project, ts)
		if ok, _ := afero.Exists(s.fs, s.VersionPath(project, name)); !ok {
			return name, nil
		}
		ts = ts.Add(time.Minute)
	}
	return "", apperrors.Conflict("importSnapshot", "no free snapshot name for %q", project)
}

// copyFileAtomic copies src over dst via a temp file in dst's directory,
// so dst is never left partially written
func (s *Service) copyFileAtomic(src, dst string) error {
	in, err := s.fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	return s.writeFileAtomic(dst, func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	})
}

// writeFileAtomic writes content to a file atomically (write to temp, then rename)
func (s *Service) writeFileAtomic(path string, fill func(w io.Writer) error) error {
	// Temp file in the same directory keeps the rename on one file system
	tmpFile, err := afero.TempFile(s.fs, filepath.Dir(path), ".flowtrack-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			tmpFile.Close()
			s.fs.Remove(tmpPath)
		}
	}()

	if err := fill(tmpFile); err != nil {
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	if err := s.fs.Rename(tmpPath, path); err != nil {
		return err
	}

	tmpFile = nil
	return nil
}
