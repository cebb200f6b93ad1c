package vendors

import (
	"context"

	"github.com/xiaoyuanzhu-com/flowtrack/apperrors"
	"github.com/xiaoyuanzhu-com/flowtrack/config"
	"github.com/xiaoyuanzhu-com/flowtrack/mirror"
)

// NewMirrorClient creates the mirror client selected by configuration
func NewMirrorClient(ctx context.Context, cfg *config.Config) (mirror.Client, error) {
	switch cfg.MirrorProvider {
	case "drive", "gdrive":
		return NewDriveClient(ctx, DriveConfig{
			ClientSecretsPath: cfg.DriveClientSecrets,
			TokenPath:         cfg.DriveTokenFile,
		})
	case "oss", "aliyun":
		return NewOSSClient(OSSConfig{
			Region:          cfg.OSSRegion,
			Bucket:          cfg.OSSBucket,
			AccessKeyID:     cfg.OSSAccessKeyID,
			AccessKeySecret: cfg.OSSAccessKeySecret,
			Prefix:          cfg.OSSPrefix,
		})
	case "memory":
		return mirror.NewMemoryClient(), nil
	default:
		return nil, apperrors.Validation("mirrorConfig", "unknown mirror provider %q", cfg.MirrorProvider)
	}
}
