package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	codecerrors "github.com/mnybridge/mnybridge/internal/errors"
)

// S3Store keeps images in one S3 bucket.
type S3Store struct {
	client     *s3.Client
	bucket     string
	maxRetries int
}

// S3Config holds connection settings for S3-compatible storage.
type S3Config struct {
	// Region is the AWS region for the bucket.
	Region string
	// Endpoint is an optional custom endpoint (MinIO, LocalStack).
	Endpoint string
	// UsePathStyle enables path-style addressing (required for MinIO).
	UsePathStyle bool
}

// NewS3Store builds a client from the ambient AWS configuration.
func NewS3Store(ctx context.Context, bucket string, cfg S3Config) (*S3Store, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, codecerrors.NewStorageError(codecerrors.CodeFetchFailed, "load AWS config", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return NewS3StoreWithClient(s3.NewFromConfig(awsCfg, s3Opts...), bucket), nil
}

// NewS3StoreWithClient wraps a pre-configured client; used by tests against
// fake endpoints.
func NewS3StoreWithClient(client *s3.Client, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket, maxRetries: 3}
}

// Fetch returns the image stored under key.
func (s *S3Store) Fetch(ctx context.Context, key string) ([]byte, error) {
	var raw []byte
	err := s.retryWithBackoff(ctx, func() error {
		resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		raw, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		var noSuchKey *s3types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, ErrNotFound
		}
		return nil, codecerrors.NewStorageError(codecerrors.CodeFetchFailed, "fetch image", err)
	}
	return raw, nil
}

// Put stores the image under key.
func (s *S3Store) Put(ctx context.Context, key string, raw []byte) error {
	err := s.retryWithBackoff(ctx, func() error {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(raw),
		})
		return err
	})
	if err != nil {
		return codecerrors.NewStorageError(codecerrors.CodePutFailed, "put image", err)
	}
	return nil
}

// Exists reports whether key holds an image.
func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := s.retryWithBackoff(ctx, func() error {
		_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			var notFound *s3types.NotFound
			if errors.As(err, &notFound) {
				exists = false
				return nil
			}
			return err
		}
		exists = true
		return nil
	})
	if err != nil {
		return false, codecerrors.NewStorageError(codecerrors.CodeFetchFailed, "head image", err)
	}
	return exists, nil
}

// List returns every key under the given prefix.
func (s *S3Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, codecerrors.NewStorageError(codecerrors.CodeFetchFailed, "list images", err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// Delete removes the image under key. S3 deletes are idempotent, so a
// missing key is not an error.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	err := s.retryWithBackoff(ctx, func() error {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		return err
	})
	if err != nil {
		return codecerrors.NewStorageError(codecerrors.CodePutFailed, "delete image", err)
	}
	return nil
}

// retryWithBackoff runs the operation with exponential backoff. Not-found
// surfaces immediately; everything else gets maxRetries more chances.
func (s *S3Store) retryWithBackoff(ctx context.Context, operation func() error) error {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = operation()
		if lastErr == nil {
			return nil
		}
		var noSuchKey *s3types.NoSuchKey
		if errors.As(lastErr, &noSuchKey) {
			return lastErr
		}

		if attempt < s.maxRetries {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * 100 * time.Millisecond
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return lastErr
}
