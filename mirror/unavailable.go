package mirror

import (
	"context"
	"io"
)

// Unavailable is a Client standing in for a provider that failed to
// initialise; every call reports why
type Unavailable struct {
	Err error
}

func (u Unavailable) fail(op string) error {
	return remoteErr(op, u.Err, "mirror unavailable")
}

func (u Unavailable) FindFolder(ctx context.Context, name, parentID string) (*Folder, error) {
	return nil, u.fail("findFolder")
}

func (u Unavailable) CreateFolder(ctx context.Context, name, parentID string) (*Folder, error) {
	return nil, u.fail("createFolder")
}

func (u Unavailable) ListFolders(ctx context.Context, parentID string) ([]Folder, error) {
	return nil, u.fail("listFolders")
}

func (u Unavailable) ListFiles(ctx context.Context, parentID string) ([]File, error) {
	return nil, u.fail("listFiles")
}

func (u Unavailable) UploadFile(ctx context.Context, parentID, title string, content io.Reader) (*File, error) {
	return nil, u.fail("uploadFile")
}

func (u Unavailable) DownloadFile(ctx context.Context, file File, w io.Writer) error {
	return u.fail("downloadFile")
}

var _ Client = Unavailable{}

// IsUnavailable reports whether c is a placeholder for a failed provider
func IsUnavailable(c Client) bool {
	_, ok := c.(Unavailable)
	return ok
}

