// Package storage defines the client used to keep uploaded product images
// in an S3 compatible bucket (Supabase Storage, Cloudflare R2 or AWS S3)
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// S3 can delete at most 1000 objects in one request
const deleteBatchSize = 1000

var ErrNoKey = errors.New("no object key provided")

type S3Client struct {
	Layout

	C       *s3.Client
	Presign *s3.PresignClient
	Bucket  *string
	// Timeout bounds every call made against the bucket
	Timeout    time.Duration
	PresignTTL time.Duration
}

func NewS3() (*S3Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), viper.GetDuration("storage.timeout"))
	defer cancel()

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(viper.GetString("storage.region")),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			viper.GetString("storage.access_key_id"),
			viper.GetString("storage.secret_access_key"),
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(viper.GetString("storage.endpoint"), "/")
	bucket := aws.String(viper.GetString("storage.bucket"))

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = viper.GetBool("storage.path_style")
	})

	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: bucket,
	})
	if err != nil {
		var apiErr smithy.APIError

		if errors.As(err, &apiErr) {
			if apiErr.ErrorCode() == "NotFound" {
				return nil, fmt.Errorf("bucket '%s' does not exist", *bucket)
			}
		}

		return nil, fmt.Errorf("failed to check if bucket exists, %w", err)
	}

	publicBase := strings.TrimRight(viper.GetString("storage.public_url"), "/")
	if publicBase == "" {
		if endpoint == "" {
			endpoint = fmt.Sprintf("https://s3.%s.amazonaws.com", cfg.Region)
		}
		publicBase = endpoint + "/" + *bucket
	}

	return &S3Client{
		Layout: Layout{
			Folder:     strings.Trim(viper.GetString("storage.folder"), "/"),
			PublicBase: publicBase,
		},
		C:          client,
		Presign:    s3.NewPresignClient(client),
		Bucket:     bucket,
		Timeout:    viper.GetDuration("storage.timeout"),
		PresignTTL: viper.GetDuration("storage.presign_ttl"),
	}, nil
}

func (s *S3Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, s.Timeout)
}

// PresignUpload returns a URL the browser can PUT the file to directly
func (s *S3Client) PresignUpload(ctx context.Context, key, contentType string) (string, error) {
	if key == "" {
		return "", ErrNoKey
	}

	input := &s3.PutObjectInput{
		Bucket: s.Bucket,
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	req, err := s.Presign.PresignPutObject(ctx, input, s3.WithPresignExpires(s.PresignTTL))
	if err != nil {
		return "", fmt.Errorf("failed to presign upload, %w", err)
	}

	return req.URL, nil
}

// Upload streams body into the bucket under key
func (s *S3Client) Upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	if key == "" {
		return ErrNoKey
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	uploader := manager.NewUploader(s.C, func(u *manager.Uploader) {
		u.Concurrency = 3
		u.PartSize = 6 << 20
	})

	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      s.Bucket,
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object, %w", err)
	}

	return nil
}

// Remove deletes the given keys. Per object failures reported by the
// bucket are returned as a single error.
func (s *S3Client) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return ErrNoKey
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var errs []error

	for start := 0; start < len(keys); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(keys))

		objects := make([]types.ObjectIdentifier, end-start)
		for i, key := range keys[start:end] {
			objects[i] = types.ObjectIdentifier{Key: aws.String(key)}
		}

		resp, err := s.C.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: s.Bucket,
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}

		for _, e := range resp.Errors {
			errs = append(errs, fmt.Errorf("%s: %s", aws.ToString(e.Key), aws.ToString(e.Message)))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to delete objects, %w", err)
	}

	zap.L().Debug("Deleted objects", zap.Strings("keys", keys))
	return nil
}

// ListStale returns the keys inside the upload folder last modified before cutoff
func (s *S3Client) ListStale(ctx context.Context, cutoff time.Time) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var keys []string

	p := s3.NewListObjectsV2Paginator(s.C, &s3.ListObjectsV2Input{
		Bucket: s.Bucket,
		Prefix: aws.String(s.Folder + "/"),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects, %w", err)
		}

		for _, obj := range page.Contents {
			if obj.LastModified != nil && obj.LastModified.Before(cutoff) {
				keys = append(keys, aws.ToString(obj.Key))
			}
		}
	}

	return keys, nil
}
