package storage

import (
	"context" // Request-scoped cancellation
	"errors"  // Sentinel errors
	"fmt"     // Error wrapping
	"io"      // Streaming photo bytes

	"github.com/aws/aws-sdk-go-v2/aws"              // AWS value helpers
	awsconfig "github.com/aws/aws-sdk-go-v2/config" // AWS config loading
	"github.com/aws/aws-sdk-go-v2/credentials"      // Static access keys
	"github.com/aws/aws-sdk-go-v2/service/s3"       // S3 client
	"github.com/aws/aws-sdk-go-v2/service/s3/types" // S3 error types
)

// s3API is the part of *s3.Client used by S3Storage.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Storage keeps objects in a single bucket, keys used verbatim.
type S3Storage struct {
	client s3API  // *s3.Client in production
	bucket string // Single bucket for every user
}

// S3Options configures NewS3Storage.
type S3Options struct {
	Bucket    string // Target bucket
	Region    string // AWS region
	Endpoint  string // Non-empty switches to path-style addressing
	AccessKey string // Static keys, empty uses the default AWS chain
	SecretKey string // Paired with AccessKey
}

// NewS3Storage builds an S3 client from opts.
func NewS3Storage(ctx context.Context, opts S3Options) (*S3Storage, error) {
	loaders := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loaders = append(loaders, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Storage{client: client, bucket: opts.Bucket}, nil
}

// countingReader records how many bytes the SDK consumed.
type countingReader struct {
	r io.Reader // Wrapped body
	n int64     // Bytes read so far
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (s *S3Storage) Put(ctx context.Context, key string, r io.Reader, contentType string) (int64, error) {
	if err := ValidateKey(key); err != nil {
		return 0, err
	}
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	// Seekable bodies (multipart files) are sent with a known length so the
	// request can be signed; anything else is streamed and counted.
	var cr *countingReader
	if rs, ok := r.(io.ReadSeeker); ok {
		size, err := rs.Seek(0, io.SeekEnd)
		if err != nil {
			return 0, fmt.Errorf("size %s: %w", key, err)
		}
		if _, err := rs.Seek(0, io.SeekStart); err != nil {
			return 0, fmt.Errorf("rewind %s: %w", key, err)
		}
		in.Body = rs
		in.ContentLength = aws.Int64(size)
	} else {
		cr = &countingReader{r: r}
		in.Body = cr
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return 0, fmt.Errorf("put %s: %w", key, err)
	}
	if cr != nil {
		return cr.n, nil
	}
	return aws.ToInt64(in.ContentLength), nil
}

func (s *S3Storage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return out.Body, nil
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
