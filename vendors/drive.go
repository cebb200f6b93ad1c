package vendors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/xiaoyuanzhu-com/flowtrack/apperrors"
	"github.com/xiaoyuanzhu-com/flowtrack/log"
	"github.com/xiaoyuanzhu-com/flowtrack/mirror"
)

const driveFolderMime = "application/vnd.google-apps.folder"

// DriveConfig points at the OAuth client secrets and the cached user token
type DriveConfig struct {
	ClientSecretsPath string
	TokenPath         string
}

// DriveClient implements mirror.Client on Google Drive
type DriveClient struct {
	svc *drive.Service
}

// NewDriveClient builds a Drive client from a previously authorized token.
// Obtaining the token is left to an external authorization flow.
func NewDriveClient(ctx context.Context, cfg DriveConfig) (*DriveClient, error) {
	const op = "driveAuth"

	secrets, err := os.ReadFile(cfg.ClientSecretsPath)
	if err != nil {
		return nil, apperrors.Remote(op, err, "cannot read client secrets %q", cfg.ClientSecretsPath)
	}
	oauthCfg, err := google.ConfigFromJSON(secrets, drive.DriveFileScope)
	if err != nil {
		return nil, apperrors.Remote(op, err, "invalid client secrets")
	}

	tok, err := loadToken(cfg.TokenPath)
	if err != nil {
		return nil, apperrors.Remote(op, err, "no cached Drive token at %q, authorize first", cfg.TokenPath)
	}

	ts := &persistingTokenSource{
		path: cfg.TokenPath,
		base: oauthCfg.TokenSource(ctx, tok),
		last: tok,
	}
	svc, err := drive.NewService(ctx, option.WithTokenSource(oauth2.ReuseTokenSource(tok, ts)))
	if err != nil {
		return nil, apperrors.Remote(op, err, "cannot create Drive service")
	}

	log.Info().Str("tokenPath", cfg.TokenPath).Msg("Google Drive mirror initialized")
	return &DriveClient{svc: svc}, nil
}

func (c *DriveClient) FindFolder(ctx context.Context, name, parentID string) (*mirror.Folder, error) {
	q := fmt.Sprintf("mimeType='%s' and name='%s' and '%s' in parents and trashed=false",
		driveFolderMime, escapeDriveQuery(name), driveParent(parentID))

	list, err := c.svc.Files.List().
		Q(q).
		OrderBy("createdTime").
		PageSize(1).
		Fields("files(id, name)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, apperrors.Remote("findFolder", err, "cannot query folder %q", name)
	}
	if len(list.Files) == 0 {
		return nil, nil
	}
	f := list.Files[0]
	return &mirror.Folder{ID: f.Id, Title: f.Name}, nil
}

func (c *DriveClient) CreateFolder(ctx context.Context, name, parentID string) (*mirror.Folder, error) {
	f, err := c.svc.Files.Create(&drive.File{
		Name:     name,
		MimeType: driveFolderMime,
		Parents:  []string{driveParent(parentID)},
	}).Fields("id, name").Context(ctx).Do()
	if err != nil {
		return nil, apperrors.Remote("createFolder", err, "cannot create folder %q", name)
	}
	return &mirror.Folder{ID: f.Id, Title: f.Name}, nil
}

func (c *DriveClient) ListFolders(ctx context.Context, parentID string) ([]mirror.Folder, error) {
	q := fmt.Sprintf("mimeType='%s' and '%s' in parents and trashed=false", driveFolderMime, driveParent(parentID))

	folders := []mirror.Folder{}
	err := c.svc.Files.List().
		Q(q).
		OrderBy("createdTime").
		Fields("nextPageToken, files(id, name)").
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				folders = append(folders, mirror.Folder{ID: f.Id, Title: f.Name})
			}
			return nil
		})
	if err != nil {
		return nil, apperrors.Remote("listFolders", err, "cannot list folders")
	}
	return folders, nil
}

func (c *DriveClient) ListFiles(ctx context.Context, parentID string) ([]mirror.File, error) {
	q := fmt.Sprintf("mimeType!='%s' and '%s' in parents and trashed=false", driveFolderMime, driveParent(parentID))

	files := []mirror.File{}
	err := c.svc.Files.List().
		Q(q).
		OrderBy("createdTime").
		Fields("nextPageToken, files(id, name, size)").
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				files = append(files, mirror.File{ID: f.Id, Title: f.Name, Size: f.Size})
			}
			return nil
		})
	if err != nil {
		return nil, apperrors.Remote("listFiles", err, "cannot list files")
	}
	return files, nil
}

func (c *DriveClient) UploadFile(ctx context.Context, parentID, title string, content io.Reader) (*mirror.File, error) {
	f, err := c.svc.Files.Create(&drive.File{
		Name:    title,
		Parents: []string{driveParent(parentID)},
	}).Media(content).Fields("id, name, size").Context(ctx).Do()
	if err != nil {
		return nil, apperrors.Remote("uploadFile", err, "cannot upload %q", title)
	}
	return &mirror.File{ID: f.Id, Title: f.Name, Size: f.Size}, nil
}

func (c *DriveClient) DownloadFile(ctx context.Context, file mirror.File, w io.Writer) error {
	resp, err := c.svc.Files.Get(file.ID).Context(ctx).Download()
	if err != nil {
		return apperrors.Remote("downloadFile", err, "cannot download %q", file.Title)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return apperrors.Remote("downloadFile", err, "download of %q interrupted", file.Title)
	}
	return nil
}

// driveParent maps the provider root to Drive's "root" alias
func driveParent(parentID string) string {
	if parentID == "" {
		return "root"
	}
	return escapeDriveQuery(parentID)
}

// escapeDriveQuery escapes a value for a single-quoted Drive query literal
func escapeDriveQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, err
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, fmt.Errorf("token file %q has no credentials", path)
	}
	return &tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// persistingTokenSource writes refreshed tokens back to the cache file
type persistingTokenSource struct {
	path string
	base oauth2.TokenSource

	mu   sync.Mutex
	last *oauth2.Token
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil || s.last.AccessToken != tok.AccessToken {
		if err := saveToken(s.path, tok); err != nil {
			log.Warn().Err(err).Str("path", s.path).Msg("failed to persist refreshed Drive token")
		}
		s.last = tok
	}
	return tok, nil
}

var _ mirror.Client = (*DriveClient)(nil)
