package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
)

// S3Storage stores objects in S3 or an S3-compatible bucket (R2).
type S3Storage struct {
	client    s3iface.S3API
	uploader  s3manageriface.UploaderAPI
	bucket    string
	publicURL string
}

// NewS3Storage creates an S3 client from static credentials.
func NewS3Storage(cfg Config) (*S3Storage, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("bucket is required for s3 storage")
	}

	awsConfig := &aws.Config{
		Region: aws.String(strings.TrimSpace(cfg.Region)),
	}
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		awsConfig.Endpoint = aws.String(endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("create s3 session: %w", err)
	}

	publicURL, err := s3PublicURL(cfg)
	if err != nil {
		return nil, err
	}

	return &S3Storage{
		client:    s3.New(sess),
		uploader:  s3manager.NewUploader(sess),
		bucket:    cfg.Bucket,
		publicURL: publicURL,
	}, nil
}

// Save uploads the object with its content type.
func (s *S3Storage) Save(ctx context.Context, key string, r io.Reader, contentType string) error {
	clean, err := cleanKey(key)
	if err != nil {
		return err
	}

	_, err = s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(clean),
		Body:         r,
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return fmt.Errorf("upload to bucket: %w", err)
	}
	return nil
}

// Delete removes the object. S3 treats deleting a missing key as success.
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	clean, err := cleanKey(key)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(clean),
	})
	if err != nil {
		return fmt.Errorf("delete from bucket: %w", err)
	}
	return nil
}

// URL returns the public URL for key.
func (s *S3Storage) URL(key string) string {
	return s.publicURL + "/" + strings.TrimLeft(key, "/")
}

// s3PublicURL resolves the base URL objects are served from. A custom
// endpoint (R2, MinIO) has no derivable public host, so it needs an absolute
// PublicURL; plain S3 falls back to the virtual-hosted bucket URL.
func s3PublicURL(cfg Config) (string, error) {
	publicURL := strings.TrimRight(strings.TrimSpace(cfg.PublicURL), "/")
	if strings.HasPrefix(publicURL, "https://") || strings.HasPrefix(publicURL, "http://") {
		return publicURL, nil
	}
	if strings.TrimSpace(cfg.Endpoint) != "" {
		return "", fmt.Errorf("an absolute public URL (UPLOAD_URL_PATH) is required when a custom storage endpoint is set, got %q", cfg.PublicURL)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com", cfg.Bucket), nil
}
