package reconcile

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/xiaoyuanzhu-com/flowtrack/apperrors"
	"github.com/xiaoyuanzhu-com/flowtrack/fs"
)

// ScanLocal walks source and stores every .flp found as a new snapshot of
// the project named after it. A .txt with the same base name anywhere in
// the tree becomes the note; when several exist the last one walked wins.
func (e *Engine) ScanLocal(ctx context.Context, source string, progress ProgressFunc) (int, error) {
	const op = "scanLocal"
	if progress == nil {
		progress = noProgress
	}
	if err := e.checkScanSource(source); err != nil {
		return 0, err
	}

	fsys := e.repo.Fs()
	root := filepath.Clean(e.repo.Root())

	var projects []string
	notes := make(map[string]string)
	err := afero.Walk(fsys, source, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			// Never rescan the repository into itself
			if filepath.Clean(path) == root && path != source {
				return filepath.SkipDir
			}
			return nil
		}
		switch filepath.Ext(path) {
		case fs.Ext:
			if fs.ValidateProjectName(fs.ProjectNameFromFile(path)) != nil {
				logger.Warn().Str("file", path).Msg("skipping file with unusable project name")
				return nil
			}
			projects = append(projects, path)
		case fs.NoteExt:
			notes[fs.ProjectNameFromFile(path)] = path
		}
		return nil
	})
	if err != nil {
		return 0, apperrors.IO(op, err, "cannot walk %q", source)
	}

	total := len(projects)
	count := 0
	for _, path := range projects {
		if err := ctx.Err(); err != nil {
			return count, err
		}

		project := fs.ProjectNameFromFile(path)

		note := fs.ScannedNote
		if notePath, ok := notes[project]; ok {
			data, err := afero.ReadFile(fsys, notePath)
			if err != nil {
				return count, apperrors.IO(op, err, "cannot read note %q", notePath)
			}
			note = string(data)
		}

		if _, err := e.repo.ImportSnapshot(ctx, project, path, note); err != nil {
			return count, err
		}
		count++
		progress(count, total)
	}
	return count, nil
}

func (e *Engine) checkScanSource(source string) error {
	const op = "scanLocal"
	if strings.TrimSpace(source) == "" {
		return apperrors.Validation(op, "no folder selected")
	}
	info, err := e.repo.Fs().Stat(source)
	if err != nil {
		return apperrors.NotFound(op, "folder %q not found", source)
	}
	if !info.IsDir() {
		return apperrors.Validation(op, "%q is not a folder", source)
	}
	return nil
}
