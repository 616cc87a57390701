// Package s3store is the object storage adapter for any
// S3-compatible service (AWS S3, MinIO, Cloudflare R2).
package s3store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/shopworks/e-shop/internal/core/port"
)

var _ port.ObjectStorage = (*Storage)(nil)
var _ port.ObjectURLSigner = (*Storage)(nil)

type Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

type Storage struct {
	cl      *s3.Client
	presign *s3.PresignClient
	bucket  string
}

func New(ctx context.Context, cfg Config) (*Storage, error) {
	const op = "s3store.New"

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID, cfg.SecretAccessKey, "",
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cl := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &Storage{
		cl:      cl,
		presign: s3.NewPresignClient(cl),
		bucket:  cfg.Bucket,
	}, nil
}

// Download reads the full object bytes. The bucket argument comes
// from the notification, so cross-bucket events keep working when the
// service watches more than one bucket.
func (s *Storage) Download(
	ctx context.Context, bucket, objectPath string,
) ([]byte, error) {
	const op = "Storage.Download"

	if bucket == "" {
		bucket = s.bucket
	}

	out, err := s.cl.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(objectPath),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %q: %w", op, objectPath, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body of %q: %w", op, objectPath, err)
	}
	return data, nil
}

func (s *Storage) Upload(
	ctx context.Context,
	bucket, objectPath string,
	data []byte,
	meta port.UploadMeta,
) error {
	const op = "Storage.Upload"

	if bucket == "" {
		bucket = s.bucket
	}

	in := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(objectPath),
		Body:   bytes.NewReader(data),
	}
	if meta.ContentType != "" {
		in.ContentType = aws.String(meta.ContentType)
	}
	if meta.CacheControl != "" {
		in.CacheControl = aws.String(meta.CacheControl)
	}

	if _, err := s.cl.PutObject(ctx, in); err != nil {
		return fmt.Errorf("%s: %q: %w", op, objectPath, err)
	}

	slog.Debug("object uploaded",
		"op", op, "objectPath", objectPath, "bytes", len(data))
	return nil
}

func (s *Storage) SignUploadURL(
	ctx context.Context, objectPath, contentType string, ttl time.Duration,
) (string, error) {
	const op = "Storage.SignUploadURL"

	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectPath),
		ContentType: aws.String(contentType),
	}, func(o *s3.PresignOptions) {
		o.Expires = ttl
	})
	if err != nil {
		return "", fmt.Errorf("%s: %q: %w", op, objectPath, err)
	}
	return req.URL, nil
}

func (s *Storage) SignReadURL(
	ctx context.Context, objectPath string, ttl time.Duration,
) (string, error) {
	const op = "Storage.SignReadURL"

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectPath),
	}, func(o *s3.PresignOptions) {
		o.Expires = ttl
	})
	if err != nil {
		return "", fmt.Errorf("%s: %q: %w", op, objectPath, err)
	}
	return req.URL, nil
}
