// ABOUTME: Signed URL generation for claim attachments
// ABOUTME: S3 presigned GET links, plus a stand-in used when no bucket is configured

// Package storage produces time-limited signed URLs for stored claim files and photos.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultTTL is how long a signed URL stays valid.
const DefaultTTL = time.Hour

// ErrNotConfigured is returned by signers that have no backing bucket.
var ErrNotConfigured = errors.New("storage is not configured")

// SignedURL is a download link and the moment it stops working.
type SignedURL struct {
	URL       string
	ExpiresAt time.Time
}

// Signer turns a storage path into a URL a remote instance can download from.
type Signer interface {
	SignURL(ctx context.Context, path string, ttl time.Duration) (SignedURL, error)
}

// Presigner is the subset of s3.PresignClient used here.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Config selects the bucket that holds claim files and photos.
type Config struct {
	Bucket   string
	Region   string
	Endpoint string
}

// S3Signer presigns GetObject requests against one bucket.
type S3Signer struct {
	presigner Presigner
	bucket    string
}

// NewS3Signer wraps an existing presigner.
func NewS3Signer(p Presigner, bucket string) *S3Signer {
	return &S3Signer{presigner: p, bucket: bucket}
}

// NewS3SignerFromConfig loads AWS credentials from the default chain and
// builds a presign client. A custom endpoint switches to path-style
// addressing for S3-compatible stores.
func NewS3SignerFromConfig(ctx context.Context, cfg Config) (*S3Signer, error) {
	if cfg.Bucket == "" {
		return nil, ErrNotConfigured
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3Signer(s3.NewPresignClient(client), cfg.Bucket), nil
}

// SignURL presigns a download of path.
func (s *S3Signer) SignURL(ctx context.Context, path string, ttl time.Duration) (SignedURL, error) {
	key := strings.TrimPrefix(path, "/")
	if key == "" {
		return SignedURL{}, fmt.Errorf("empty storage path")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	signedAt := time.Now().UTC()
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(o *s3.PresignOptions) { o.Expires = ttl })
	if err != nil {
		return SignedURL{}, fmt.Errorf("failed to presign %s: %w", key, err)
	}

	return SignedURL{URL: req.URL, ExpiresAt: signedAt.Add(ttl)}, nil
}

// Unconfigured fails every request; used when no bucket is set so that
// aggregation still succeeds with per-item url errors.
type Unconfigured struct{}

// SignURL always returns ErrNotConfigured.
func (Unconfigured) SignURL(context.Context, string, time.Duration) (SignedURL, error) {
	return SignedURL{}, ErrNotConfigured
}
