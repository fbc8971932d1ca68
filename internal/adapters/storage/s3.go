// Package storage removes pin photos from S3-compatible object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/samirrijal/pinmap/internal/core/ports"
	"github.com/samirrijal/pinmap/internal/pkg/config"
)

// ErrForeignURL is returned for URLs that do not point into the bucket.
var ErrForeignURL = errors.New("url is not served from the photo bucket")

var _ ports.BlobStore = (*Store)(nil)

// ObjectDeleter is the subset of *s3.Client used by Store.
type ObjectDeleter interface {
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Store implements ports.BlobStore on an S3 bucket.
type Store struct {
	client     ObjectDeleter
	bucket     string
	publicBase *url.URL
}

// New creates a Store from cfg. Path-style addressing is used so that R2 and
// MinIO endpoints work unchanged.
func New(cfg config.StorageConfig) (*Store, error) {
	if !cfg.Enabled() {
		return nil, errors.New("storage bucket is not configured")
	}
	if cfg.Endpoint == "" {
		return nil, errors.New("storage endpoint is required")
	}

	client := s3.New(s3.Options{
		Region: cfg.Region,
		Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		BaseEndpoint: aws.String(cfg.Endpoint),
		UsePathStyle: true,
	})

	return NewWithClient(client, cfg.Bucket, cfg.PublicBaseURL)
}

// NewWithClient creates a Store around an existing client. publicBaseURL is
// the prefix photo URLs are served under; empty means path-style URLs on the
// storage endpoint.
func NewWithClient(client ObjectDeleter, bucket, publicBaseURL string) (*Store, error) {
	s := &Store{client: client, bucket: bucket}
	if publicBaseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(publicBaseURL, "/"))
		if err != nil {
			return nil, fmt.Errorf("public base url: %w", err)
		}
		s.publicBase = u
	}
	return s, nil
}

// Delete removes the object behind rawURL. Deleting a missing object is not
// an error.
func (s *Store) Delete(ctx context.Context, rawURL string) error {
	key, err := s.KeyFromURL(rawURL)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// KeyFromURL maps a public photo URL to its object key.
func (s *Store) KeyFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%q: %w", rawURL, ErrForeignURL)
	}

	path := strings.TrimPrefix(u.EscapedPath(), "/")
	if s.publicBase != nil {
		if !strings.EqualFold(u.Host, s.publicBase.Host) {
			return "", fmt.Errorf("%q: %w", rawURL, ErrForeignURL)
		}
		base := strings.TrimPrefix(s.publicBase.EscapedPath(), "/")
		if base != "" {
			if !strings.HasPrefix(path, base+"/") {
				return "", fmt.Errorf("%q: %w", rawURL, ErrForeignURL)
			}
			path = strings.TrimPrefix(path, base+"/")
		}
	} else {
		if !strings.HasPrefix(path, s.bucket+"/") {
			return "", fmt.Errorf("%q: %w", rawURL, ErrForeignURL)
		}
		path = strings.TrimPrefix(path, s.bucket+"/")
	}

	key, err := url.PathUnescape(path)
	if err != nil || key == "" {
		return "", fmt.Errorf("%q: %w", rawURL, ErrForeignURL)
	}
	return key, nil
}
