package artifacts

import (
	"fmt"
	"os"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/hashicorp/go-hclog"

	"github.com/codesentry/codesentry/pkg/shared/config"
)

// Uploader pushes exported scan reports to an S3 bucket.
type Uploader struct {
	bucket string
	region string
	logger hclog.Logger
}

// NewUploader creates an uploader for the configured artifacts bucket.
func NewUploader(logger hclog.Logger, cfg *config.Config) *Uploader {
	return &Uploader{
		bucket: cfg.Artifacts.S3Bucket,
		region: config.SetThen(cfg.Artifacts.Region, "us-east-1"),
		logger: logger,
	}
}

// Enabled reports whether an artifacts bucket is configured.
func (u *Uploader) Enabled() bool {
	return u.bucket != ""
}

// UploadReport uploads the report file for the given run, keyed by
// repository and run id, and returns the object key.
func (u *Uploader) UploadReport(owner, name, runID, filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open report %q: %w", filePath, err)
	}
	defer file.Close()

	sess := session.Must(session.NewSession(&aws.Config{
		Region: aws.String(u.region),
	}))
	uploader := s3manager.NewUploader(sess)

	key := path.Join(owner, name, runID+".sarif")
	u.logger.Info("uploading report", "bucket", u.bucket, "key", key)
	if _, err := uploader.Upload(&s3manager.UploadInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   file,
	}); err != nil {
		return "", fmt.Errorf("failed to upload report to s3: %w", err)
	}

	return key, nil
}
