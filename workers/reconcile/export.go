package reconcile

import (
	"context"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xiaoyuanzhu-com/flowtrack/apperrors"
	"github.com/xiaoyuanzhu-com/flowtrack/fs"
	"github.com/xiaoyuanzhu-com/flowtrack/mirror"
)

var exportFilter = fs.NewPathFilter(fs.ExcludeForExport)

type exportItem struct {
	project string
	rel     string // slash-separated, relative to the project folder
}

// Export uploads every file of the selected projects under
// <root>/<project>/ on the mirror, titled by its path relative to the
// project folder. Nothing is deduplicated: exporting twice uploads twice.
func (e *Engine) Export(ctx context.Context, projects []string, progress ProgressFunc) (int, error) {
	const op = "export"
	if progress == nil {
		progress = noProgress
	}

	selected := normalizeProjects(projects)
	if len(selected) == 0 {
		return 0, apperrors.Validation(op, "select at least one project to export")
	}

	var items []exportItem
	for _, project := range selected {
		files, err := e.repo.ProjectFiles(project)
		if err != nil {
			return 0, err
		}
		for _, rel := range files {
			if exportFilter.IsExcludedName(path.Base(rel)) {
				logger.Debug().Str("project", project).Str("file", rel).Msg("skipping transient file")
				continue
			}
			items = append(items, exportItem{project: project, rel: rel})
		}
	}

	root, err := mirror.FindOrCreateFolder(ctx, e.mirror, e.cfg.RootName, "")
	if err != nil {
		return 0, err
	}

	total := len(items)
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		folder, err := mirror.FindOrCreateFolder(ctx, e.mirror, item.project, root.ID)
		if err != nil {
			return i, err
		}
		if err := e.upload(ctx, folder.ID, item); err != nil {
			return i, err
		}
		progress(i+1, total)
	}
	return total, nil
}

func (e *Engine) upload(ctx context.Context, folderID string, item exportItem) error {
	local := filepath.Join(e.repo.ProjectDir(item.project), filepath.FromSlash(item.rel))
	f, err := e.repo.Fs().Open(local)
	if err != nil {
		return apperrors.IO("export", err, "cannot open %q", local)
	}
	defer f.Close()

	if _, err := e.mirror.UploadFile(ctx, folderID, item.rel, f); err != nil {
		return remoteErr("uploadFile", err, "cannot upload %s/%s", item.project, item.rel)
	}
	logger.Debug().Str("project", item.project).Str("file", item.rel).Msg("file uploaded")
	return nil
}

// normalizeProjects trims, de-duplicates and sorts project names
func normalizeProjects(projects []string) []string {
	seen := make(map[string]bool, len(projects))
	out := make([]string, 0, len(projects))
	for _, p := range projects {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func joinParams(projects []string) string {
	return strings.Join(projects, ",")
}
