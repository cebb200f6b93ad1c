package fs

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/xiaoyuanzhu-com/flowtrack/apperrors"
	"github.com/xiaoyuanzhu-com/flowtrack/log"
)

// ReadNote returns the note bound to a version, or "" when it has none
func (s *Service) ReadNote(project, version string) (string, error) {
	if err := ValidateProjectName(project); err != nil {
		return "", err
	}
	if err := ValidateVersionName(version); err != nil {
		return "", err
	}

	data, err := afero.ReadFile(s.fs, s.VersionPath(project, NoteName(version)))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", apperrors.IO("readNote", err, "cannot read note for %q", version)
	}
	return string(data), nil
}

// WriteNote replaces the note of an existing version.
// Surrounding whitespace is trimmed.
func (s *Service) WriteNote(ctx context.Context, project, version, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateProjectName(project); err != nil {
		return err
	}
	if err := ValidateVersionName(version); err != nil {
		return err
	}

	mu := s.locks.acquire(project)
	defer mu.Unlock()

	if ok, _ := afero.Exists(s.fs, s.VersionPath(project, version)); !ok {
		return apperrors.NotFound("writeNote", "version %q of %q not found", version, project)
	}

	if err := s.writeNote(project, version, strings.TrimSpace(text)); err != nil {
		return apperrors.IO("writeNote", err, "cannot write note for %q", version)
	}

	log.Info().Str("project", project).Str("version", version).Msg("note saved")
	s.changed(ChangeEvent{Project: project, Version: version, Op: "note", Trigger: "api"})
	return nil
}

// writeNote writes note text without locking or validation
func (s *Service) writeNote(project, version, text string) error {
	return afero.WriteFile(s.fs, s.VersionPath(project, NoteName(version)), []byte(text), 0644)
}
