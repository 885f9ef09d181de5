// Package storage keeps uploaded images and hands back their public URLs.
package storage

import (
	"context"       // Context for S3 calls
	"fmt"           // Error wrapping
	"io"            // Upload bodies
	"os"            // Local files
	"path/filepath" // Safe local paths
	"strings"       // String manipulation

	"github.com/aws/aws-sdk-go-v2/aws"              // AWS value helpers
	awsconfig "github.com/aws/aws-sdk-go-v2/config" // Default credential chain
	"github.com/aws/aws-sdk-go-v2/service/s3"       // S3 client
)

// ImageStore persists an image under key and returns its public URL
type ImageStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

// S3Store writes images to an S3 bucket
type S3Store struct {
	client  *s3.Client
	bucket  string // Target bucket
	baseURL string // Public URL prefix, no trailing slash
}

// NewS3Store loads the default AWS credential chain for region
func NewS3Store(ctx context.Context, region, bucket, baseURL string) (*S3Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("S3 bucket is not configured")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS default config: %w", err)
	}
	if baseURL == "" {
		// Virtual-hosted style bucket URL
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return &S3Store{client: s3.NewFromConfig(cfg), bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Upload puts the object and returns its URL under the assets base
func (s *S3Store) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file to S3: %w", err)
	}
	return s.baseURL + "/" + key, nil
}

// LocalStore writes images below a directory served by the API itself
type LocalStore struct {
	dir     string // Root of the uploads
	baseURL string // URL prefix the directory is served under
}

// NewLocalStore creates dir if needed
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir is the directory files are written to
func (s *LocalStore) Dir() string { return s.dir }

// Upload copies body to dir/key
func (s *LocalStore) Upload(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	clean := filepath.Clean("/" + key) // Rooted clean drops any ".." segments
	path := filepath.Join(s.dir, clean)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}
	f, err := os.Create(path) // Overwrites an earlier upload under the same key
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, body); err != nil {
		return "", fmt.Errorf("write image file: %w", err)
	}
	return s.baseURL + filepath.ToSlash(clean), nil
}
