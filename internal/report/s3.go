package report

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/crnow/pkg/shared/config"
	crnowerrors "github.com/scan-io-git/crnow/pkg/shared/errors"
)

// DefaultS3Region is used when the publish configuration names no region.
const DefaultS3Region = "eu-west-2"

// S3Publisher uploads written reports to an S3 bucket.
type S3Publisher struct {
	uploader s3manageriface.UploaderAPI
	bucket   string
	prefix   string
	logger   hclog.Logger
}

// NewS3Publisher creates a publisher for cfg. Bucket and prefix override the configured ones when set.
func NewS3Publisher(cfg config.S3, bucket, prefix string, logger hclog.Logger) (*S3Publisher, error) {
	bucket = config.SetThen(bucket, cfg.Bucket)
	if bucket == "" {
		return nil, crnowerrors.NewValidationError("s3-bucket", "bucket is required to publish reports")
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(config.SetThen(cfg.Region, DefaultS3Region)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return newS3Publisher(s3manager.NewUploader(sess), bucket, config.SetThen(prefix, cfg.Prefix), logger), nil
}

func newS3Publisher(uploader s3manageriface.UploaderAPI, bucket, prefix string, logger hclog.Logger) *S3Publisher {
	return &S3Publisher{
		uploader: uploader,
		bucket:   bucket,
		prefix:   prefix,
		logger:   logger,
	}
}

// ObjectKey returns the key a report file of instance is stored under.
func (p *S3Publisher) ObjectKey(instance, reportPath string) string {
	return path.Join(p.prefix, instance, filepath.Base(reportPath))
}

// Publish uploads the report at reportPath and returns its location.
func (p *S3Publisher) Publish(ctx context.Context, instance, reportPath string) (string, error) {
	f, err := os.Open(reportPath)
	if err != nil {
		return "", fmt.Errorf("failed to open report %q: %w", reportPath, err)
	}
	defer f.Close()

	key := p.ObjectKey(instance, reportPath)
	result, err := p.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return "", crnowerrors.NewUpstreamError("upload report", 0, err)
	}

	p.logger.Info("uploaded report", "bucket", p.bucket, "key", key, "location", result.Location)
	return result.Location, nil
}
