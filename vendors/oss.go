package vendors

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss"
	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss/credentials"
	"github.com/google/uuid"

	"github.com/xiaoyuanzhu-com/flowtrack/apperrors"
	"github.com/xiaoyuanzhu-com/flowtrack/log"
	"github.com/xiaoyuanzhu-com/flowtrack/mirror"
)

// Key layout inside the bucket. A folder ID is the key prefix of the folder:
//
//	<parent>folders/<name>/.folder        marker object
//	<parent>files/<uuidv7>/<title>        one object per upload
//
// Names are path-escaped so titles may contain slashes.
const (
	ossFoldersDir = "folders/"
	ossFilesDir   = "files/"
	ossMarker     = ".folder"
)

// OSSConfig holds Aliyun OSS credentials and placement
type OSSConfig struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	AccessKeySecret string
	Prefix          string // Optional key prefix for the whole mirror
}

// OSSClient implements mirror.Client on an Aliyun OSS bucket
type OSSClient struct {
	client *oss.Client
	bucket string
	prefix string
}

// NewOSSClient creates an OSS-backed mirror
func NewOSSClient(cfg OSSConfig) (*OSSClient, error) {
	if cfg.AccessKeyID == "" || cfg.AccessKeySecret == "" || cfg.Bucket == "" {
		return nil, apperrors.Validation("ossConfig", "OSS credentials and bucket are required")
	}
	region := cfg.Region
	if region == "" {
		region = "cn-beijing"
	}

	credProvider := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.AccessKeySecret)
	ossCfg := oss.LoadDefaultConfig().
		WithCredentialsProvider(credProvider).
		WithRegion(region)

	log.Info().Str("region", region).Str("bucket", cfg.Bucket).Msg("Aliyun OSS mirror initialized")
	return &OSSClient{
		client: oss.NewClient(ossCfg),
		bucket: cfg.Bucket,
		prefix: normalizePrefix(cfg.Prefix),
	}, nil
}

func (c *OSSClient) FindFolder(ctx context.Context, name, parentID string) (*mirror.Folder, error) {
	id := folderKey(c.base(parentID), name)
	exists, err := c.client.IsObjectExist(ctx, c.bucket, id+ossMarker)
	if err != nil {
		return nil, apperrors.Remote("findFolder", err, "cannot query folder %q", name)
	}
	if !exists {
		return nil, nil
	}
	return &mirror.Folder{ID: id, Title: name}, nil
}

func (c *OSSClient) CreateFolder(ctx context.Context, name, parentID string) (*mirror.Folder, error) {
	id := folderKey(c.base(parentID), name)
	_, err := c.client.PutObject(ctx, &oss.PutObjectRequest{
		Bucket: oss.Ptr(c.bucket),
		Key:    oss.Ptr(id + ossMarker),
		Body:   strings.NewReader(""),
	})
	if err != nil {
		return nil, apperrors.Remote("createFolder", err, "cannot create folder %q", name)
	}
	return &mirror.Folder{ID: id, Title: name}, nil
}

func (c *OSSClient) ListFolders(ctx context.Context, parentID string) ([]mirror.Folder, error) {
	dir := c.base(parentID) + ossFoldersDir
	folders := []mirror.Folder{}

	p := c.client.NewListObjectsV2Paginator(&oss.ListObjectsV2Request{
		Bucket:    oss.Ptr(c.bucket),
		Prefix:    oss.Ptr(dir),
		Delimiter: oss.Ptr("/"),
	})
	for p.HasNext() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, apperrors.Remote("listFolders", err, "cannot list folders")
		}
		for _, cp := range page.CommonPrefixes {
			id := oss.ToString(cp.Prefix)
			title, ok := unescapeSegment(strings.TrimSuffix(strings.TrimPrefix(id, dir), "/"))
			if !ok {
				continue
			}
			folders = append(folders, mirror.Folder{ID: id, Title: title})
		}
	}
	return folders, nil
}

func (c *OSSClient) ListFiles(ctx context.Context, parentID string) ([]mirror.File, error) {
	dir := c.base(parentID) + ossFilesDir
	files := []mirror.File{}

	p := c.client.NewListObjectsV2Paginator(&oss.ListObjectsV2Request{
		Bucket: oss.Ptr(c.bucket),
		Prefix: oss.Ptr(dir),
	})
	for p.HasNext() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, apperrors.Remote("listFiles", err, "cannot list files")
		}
		for _, obj := range page.Contents {
			key := oss.ToString(obj.Key)
			title, ok := fileTitle(dir, key)
			if !ok {
				continue
			}
			files = append(files, mirror.File{ID: key, Title: title, Size: obj.Size})
		}
	}
	return files, nil
}

func (c *OSSClient) UploadFile(ctx context.Context, parentID, title string, content io.Reader) (*mirror.File, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperrors.Remote("uploadFile", err, "cannot allocate object id")
	}
	key := c.base(parentID) + ossFilesDir + id.String() + "/" + url.PathEscape(title)

	_, err = c.client.PutObject(ctx, &oss.PutObjectRequest{
		Bucket: oss.Ptr(c.bucket),
		Key:    oss.Ptr(key),
		Body:   content,
	})
	if err != nil {
		return nil, apperrors.Remote("uploadFile", err, "cannot upload %q", title)
	}
	return &mirror.File{ID: key, Title: title}, nil
}

func (c *OSSClient) DownloadFile(ctx context.Context, file mirror.File, w io.Writer) error {
	result, err := c.client.GetObject(ctx, &oss.GetObjectRequest{
		Bucket: oss.Ptr(c.bucket),
		Key:    oss.Ptr(file.ID),
	})
	if err != nil {
		return apperrors.Remote("downloadFile", err, "cannot download %q", file.Title)
	}
	defer result.Body.Close()

	if _, err := io.Copy(w, result.Body); err != nil {
		return apperrors.Remote("downloadFile", err, "download of %q interrupted", file.Title)
	}
	return nil
}

// base returns the key prefix for a parent, the mirror prefix for the root
func (c *OSSClient) base(parentID string) string {
	if parentID == "" {
		return c.prefix
	}
	return parentID
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

func folderKey(base, name string) string {
	return fmt.Sprintf("%s%s%s/", base, ossFoldersDir, url.PathEscape(name))
}

// fileTitle extracts the title from <dir><id>/<escaped title>
func fileTitle(dir, key string) (string, bool) {
	rest := strings.TrimPrefix(key, dir)
	idx := strings.Index(rest, "/")
	if idx <= 0 || idx == len(rest)-1 {
		return "", false
	}
	return unescapeSegment(rest[idx+1:])
}

func unescapeSegment(s string) (string, bool) {
	if s == "" || strings.Contains(s, "/") {
		return "", false
	}
	out, err := url.PathUnescape(s)
	if err != nil {
		return "", false
	}
	return out, true
}

var _ mirror.Client = (*OSSClient)(nil)
