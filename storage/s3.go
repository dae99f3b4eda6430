package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// ObjectAPI is the subset of *s3.Client used by S3.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3Options struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// S3 keeps uploads in an S3 compatible bucket. Public URLs are formed from
// the configured base URL, which is expected to front the bucket.
type S3 struct {
	client  ObjectAPI
	bucket  string
	baseURL string
	now     func() time.Time
}

func NewS3(ctx context.Context, opts S3Options, publicBaseURL string) (*S3, error) {
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("S3 - NewS3 - config.LoadDefaultConfig: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String(opts.Endpoint)
	})

	return NewS3WithClient(client, opts.Bucket, publicBaseURL), nil
}

func NewS3WithClient(client ObjectAPI, bucket, publicBaseURL string) *S3 {
	return &S3{
		client:  client,
		bucket:  bucket,
		baseURL: publicBaseURL,
		now:     time.Now,
	}
}

func (s *S3) Save(ctx context.Context, originalName string, r io.Reader) (StoredFile, error) {
	now := s.now()

	// the SDK needs a seekable body to sign the payload
	body, ok := r.(io.ReadSeeker)
	if !ok {
		b, err := io.ReadAll(r)
		if err != nil {
			return StoredFile{}, fmt.Errorf("S3 - Save - io.ReadAll: %w", err)
		}
		body = bytes.NewReader(b)
	}
	start, err := body.Seek(0, io.SeekCurrent)
	if err != nil {
		return StoredFile{}, fmt.Errorf("S3 - Save - body.Seek: %w", err)
	}

	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		key := keyCandidate(now, originalName, attempt)

		if _, err := body.Seek(start, io.SeekStart); err != nil {
			return StoredFile{}, fmt.Errorf("S3 - Save - body.Seek: %w", err)
		}

		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        body,
			IfNoneMatch: aws.String("*"),
		})
		if isPreconditionFailed(err) {
			continue
		}
		if err != nil {
			return StoredFile{}, fmt.Errorf("S3 - Save - s.client.PutObject: %w", err)
		}

		return StoredFile{
			Key: key,
			URL: joinURL(s.baseURL, key),
		}, nil
	}

	return StoredFile{}, fmt.Errorf("S3 - Save: %w", ErrKeyTaken)
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed"
}

func (s *S3) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("S3 - Open - s.client.GetObject: %w", err)
	}

	return out.Body, nil
}

func (s *S3) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("S3 - Delete - s.client.DeleteObject: %w", err)
	}

	return nil
}
