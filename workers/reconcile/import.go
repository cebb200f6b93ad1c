package reconcile

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/xiaoyuanzhu-com/flowtrack/fs"
	"github.com/xiaoyuanzhu-com/flowtrack/mirror"
)

type importItem struct {
	project string
	file    mirror.File
}

// ImportRemote downloads every .flp and .txt file of every project folder
// under the mirror root into the repository. A missing root imports nothing.
func (e *Engine) ImportRemote(ctx context.Context, progress ProgressFunc) (int, error) {
	if progress == nil {
		progress = noProgress
	}

	root, err := e.mirror.FindFolder(ctx, e.cfg.RootName, "")
	if err != nil {
		return 0, remoteErr("findFolder", err, "cannot look up %q", e.cfg.RootName)
	}
	if root == nil {
		logger.Info().Str("root", e.cfg.RootName).Msg("mirror root not found, nothing to import")
		return 0, nil
	}

	folders, err := e.mirror.ListFolders(ctx, root.ID)
	if err != nil {
		return 0, remoteErr("listFolders", err, "cannot list project folders")
	}

	var items []importItem
	for _, folder := range folders {
		if fs.ValidateProjectName(folder.Title) != nil {
			logger.Warn().Str("folder", folder.Title).Msg("skipping remote folder with unsafe name")
			continue
		}
		files, err := e.mirror.ListFiles(ctx, folder.ID)
		if err != nil {
			return 0, remoteErr("listFiles", err, "cannot list files of %q", folder.Title)
		}
		for _, file := range files {
			if !isImportable(file.Title) {
				continue
			}
			if !isSafeTitle(file.Title) {
				logger.Warn().Str("project", folder.Title).Str("file", file.Title).Msg("skipping remote file with unsafe name")
				continue
			}
			items = append(items, importItem{project: folder.Title, file: file})
		}
	}

	total := len(items)
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		err := e.repo.ReceiveFile(ctx, item.project, item.file.Title, func(w io.Writer) error {
			if err := e.mirror.DownloadFile(ctx, item.file, w); err != nil {
				return remoteErr("downloadFile", err, "cannot download %s/%s", item.project, item.file.Title)
			}
			return nil
		})
		if err != nil {
			return i, err
		}
		logger.Debug().Str("project", item.project).Str("file", item.file.Title).Msg("file downloaded")
		progress(i+1, total)
	}
	return total, nil
}

func isImportable(title string) bool {
	ext := filepath.Ext(title)
	return ext == fs.Ext || ext == fs.NoteExt
}

// isSafeTitle rejects titles that would escape or hide inside the project folder
func isSafeTitle(title string) bool {
	if title == "" || title == "." || title == ".." || strings.HasPrefix(title, ".") {
		return false
	}
	return !strings.ContainsAny(title, `/\`+"\x00")
}
