package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3Store implements Store on top of an S3-compatible backend (AWS S3 or
// MinIO). Objects are keyed under the pdfs/ prefix; the URL handed out is
// "<endpoint>/<bucket>/<key>" and the key is recovered from its last two
// path segments.
type S3Store struct {
	client   *s3.Client
	bucket   string
	endpoint string
}

// NewS3Store builds an S3 client with static credentials and the given
// base endpoint (MinIO in development, AWS otherwise).
func NewS3Store(ctx context.Context, accessKey, secretKey, region, baseEndpoint, bucket string) (*S3Store, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey,
			secretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config error: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(baseEndpoint)
		o.UsePathStyle = true
	})

	return &S3Store{
		client:   client,
		bucket:   bucket,
		endpoint: strings.TrimSuffix(baseEndpoint, "/"),
	}, nil
}

// StorageKey builds an object key under pdfs/ that keeps the original file
// name recognizable while staying unique per upload.
func StorageKey(name string) string {
	return fmt.Sprintf("pdfs/%s-%s", uuid.New(), path.Base(name))
}

// KeyFromURL recovers the object key ("pdfs/<name>") from a stored locator.
func KeyFromURL(fileURL string) (string, error) {
	u, err := url.Parse(fileURL)
	if err != nil {
		return "", fmt.Errorf("invalid file url %q: %w", fileURL, err)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 {
		return "", fmt.Errorf("invalid file url %q: no key", fileURL)
	}
	return strings.Join(segments[len(segments)-2:], "/"), nil
}

// Upload stores body under a fresh key and returns the object's URL.
func (s *S3Store) Upload(ctx context.Context, name, contentType string, body []byte) (string, error) {
	key := StorageKey(name)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload error: %w", err)
	}

	return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key), nil
}

// Download fetches the object referenced by fileURL.
func (s *S3Store) Download(ctx context.Context, fileURL string) ([]byte, error) {
	key, err := KeyFromURL(fileURL)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 download error: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read error: %w", err)
	}
	return data, nil
}

// Delete removes the object referenced by fileURL.
func (s *S3Store) Delete(ctx context.Context, fileURL string) error {
	key, err := KeyFromURL(fileURL)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete error: %w", err)
	}
	return nil
}
