package lockstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/depfix-tools/depfix/internal/errors"
)

// S3Store keeps lock documents in an S3 bucket.
type S3Store struct {
	url    string
	bucket string
	prefix string
	client *s3.Client
}

// NewS3Store creates a store for an S3 location.
// URL format: s3://bucket/prefix
func NewS3Store(url string) (*S3Store, error) {
	bucket, prefix, err := parseS3URL(url)
	if err != nil {
		return nil, errors.NewLockError(url, "store", err)
	}

	// Load AWS config
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.NewLockError(url, "store",
			fmt.Errorf("failed to load AWS config: %w", err))
	}

	return &S3Store{
		url:    url,
		bucket: bucket,
		prefix: strings.TrimSuffix(prefix, "/"),
		client: s3.NewFromConfig(cfg),
	}, nil
}

// Protocol returns "s3".
func (s *S3Store) Protocol() string {
	return "s3"
}

// Put uploads a document to the bucket.
func (s *S3Store) Put(ctx context.Context, name string, data []byte) error {
	key := s.getKey(name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return errors.NewLockError(fmt.Sprintf("s3://%s/%s", s.bucket, key), "store", err)
	}
	return nil
}

// Get downloads a document from the bucket.
func (s *S3Store) Get(ctx context.Context, name string) ([]byte, error) {
	key := s.getKey(name)
	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.NewLockError(fmt.Sprintf("s3://%s/%s", s.bucket, key), "fetch", err)
	}
	defer output.Body.Close()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, errors.NewLockError(fmt.Sprintf("s3://%s/%s", s.bucket, key), "fetch", err)
	}
	return data, nil
}

// getKey returns the full S3 key for a file name.
func (s *S3Store) getKey(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

// parseS3URL parses an S3 URL into bucket and prefix.
func parseS3URL(url string) (bucket, prefix string, err error) {
	if !strings.HasPrefix(url, "s3://") {
		return "", "", fmt.Errorf("invalid S3 URL: must start with s3://")
	}

	path := strings.TrimPrefix(url, "s3://")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) == 0 || parts[0] == "" {
		return "", "", fmt.Errorf("invalid S3 URL: missing bucket name")
	}

	bucket = parts[0]
	if len(parts) > 1 {
		prefix = parts[1]
	}

	return bucket, prefix, nil
}
