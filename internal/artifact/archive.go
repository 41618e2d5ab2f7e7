package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"canvas-analytics-etl/internal/config"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// Archiver copies run artifacts to object storage so raw dumps survive the
// next run overwriting the local files.
type Archiver struct {
	client *s3.S3
	bucket string
}

func NewArchiver(cfg *config.Config) (*Archiver, error) {
	s3Config := &aws.Config{
		Credentials:      credentials.NewStaticCredentials(cfg.Storage.S3.AccessKey, cfg.Storage.S3.SecretKey, ""),
		Endpoint:         aws.String(cfg.Storage.S3.Endpoint),
		Region:           aws.String(cfg.Storage.S3.Region),
		DisableSSL:       aws.Bool(!cfg.Storage.S3.UseSSL),
		S3ForcePathStyle: aws.Bool(true),
	}

	sess, err := session.NewSession(s3Config)
	if err != nil {
		return nil, err
	}

	return &Archiver{
		client: s3.New(sess),
		bucket: cfg.Storage.S3.Bucket,
	}, nil
}

// ArchiveFile uploads one local artifact under runs/<runID>/<basename>.
func (a *Archiver) ArchiveFile(ctx context.Context, runID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open artifact for archiving: %w", err)
	}
	defer f.Close()

	key := fmt.Sprintf("runs/%s/%s", runID, filepath.Base(path))
	_, err = a.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	return err
}
