// Package mirror defines the remote storage capabilities the reconciliation
// engine needs. Providers live in the vendors package.
package mirror

import (
	"context"
	"io"

	"github.com/xiaoyuanzhu-com/flowtrack/apperrors"
)

// Folder is an opaque handle to a remote folder
type Folder struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// File is an opaque handle to a remote file
type File struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Size  int64  `json:"size,omitempty"`
}

// Client is a remote hierarchy of folders and flat files.
// An empty parentID means the provider's root. Titles are not unique:
// uploading the same title twice yields two files.
type Client interface {
	// FindFolder returns the first folder titled name under parentID, or nil
	FindFolder(ctx context.Context, name, parentID string) (*Folder, error)
	CreateFolder(ctx context.Context, name, parentID string) (*Folder, error)
	ListFolders(ctx context.Context, parentID string) ([]Folder, error)
	ListFiles(ctx context.Context, parentID string) ([]File, error)
	UploadFile(ctx context.Context, parentID, title string, content io.Reader) (*File, error)
	DownloadFile(ctx context.Context, file File, w io.Writer) error
}

// FindOrCreateFolder resolves a folder by exact title, creating it when absent.
// Two processes racing here can both create the folder.
func FindOrCreateFolder(ctx context.Context, c Client, name, parentID string) (*Folder, error) {
	folder, err := c.FindFolder(ctx, name, parentID)
	if err != nil {
		return nil, remoteErr("findFolder", err, "cannot look up folder %q", name)
	}
	if folder != nil {
		return folder, nil
	}

	folder, err = c.CreateFolder(ctx, name, parentID)
	if err != nil {
		return nil, remoteErr("createFolder", err, "cannot create folder %q", name)
	}
	return folder, nil
}

// remoteErr classifies provider failures, keeping kinds already assigned
func remoteErr(op string, err error, format string, args ...any) error {
	if apperrors.KindOf(err) != apperrors.KindUnknown {
		return err
	}
	return apperrors.Remote(op, err, format, args...)
}
