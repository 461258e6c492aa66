// Package storage persists the JSON artifacts of a run, either on the local
// filesystem or in an S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/giygas/medcodes-scraper/config"
	"github.com/giygas/medcodes-scraper/interfaces"
	"github.com/giygas/medcodes-scraper/logging"
)

// Artifact name prefixes
const (
	PrefixAll  = "all_codes"
	PrefixCMS  = "cms_codes"
	PrefixNUCC = "nucc_codes"
)

// TimestampLayout formats the run timestamp embedded in artifact names
const TimestampLayout = "20060102_150405"

// Filename returns the artifact name for prefix at t, e.g. all_codes_20240115_143052.json
func Filename(prefix string, t time.Time) string {
	return fmt.Sprintf("%s_%s.json", prefix, t.Format(TimestampLayout))
}

// New returns the storage backend selected by cfg: a bucket when
// GCS_BUCKET_NAME is set, the local output directory otherwise.
func New(ctx context.Context, cfg *config.Config) (interfaces.Storage, error) {
	if cfg.UseObjectStorage() {
		logging.Info("Using object storage", "endpoint", cfg.StorageEndpoint, "bucket", cfg.BucketName)
		return NewObjectStorage(ctx, ObjectStorageOptions{
			Endpoint:  cfg.StorageEndpoint,
			Bucket:    cfg.BucketName,
			AccessKey: cfg.StorageAccessKey,
			SecretKey: cfg.StorageSecretKey,
			Region:    cfg.StorageRegion,
			UseSSL:    cfg.StorageUseSSL,
		})
	}

	logging.Info("Using local storage", "dir", cfg.OutputDir)
	return NewLocalStorage(cfg.OutputDir)
}
