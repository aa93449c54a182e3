package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config describes an S3-compatible bucket holding a project.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// S3 stores documents as objects. Keys are joined to an optional prefix.
type S3 struct {
	client *minio.Client
	bucket string
	prefix string

	checkOnce sync.Once
	checkErr  error
}

func NewS3(cfg S3Config) (*S3, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	prefix := strings.Trim(strings.TrimSpace(cfg.Prefix), "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3{client: client, bucket: bucket, prefix: prefix}, nil
}

func (s *S3) ensureBucket(ctx context.Context) error {
	s.checkOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.checkErr = err
			return
		}
		if !exists {
			s.checkErr = fmt.Errorf("bucket %q does not exist", s.bucket)
		}
	})
	return s.checkErr
}

func (s *S3) Resolve(key string) string {
	return s.prefix + strings.TrimLeft(key, "/")
}

func (s *S3) Fetch(ctx context.Context, location string) (string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return "", wrap("fetch", location, err)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, location, minio.GetObjectOptions{})
	if err != nil {
		return "", wrap("fetch", location, translate(err))
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return "", wrap("fetch", location, translate(err))
	}
	return string(data), nil
}

func (s *S3) Push(ctx context.Context, location, text string) error {
	if err := s.ensureBucket(ctx); err != nil {
		return wrap("push", location, err)
	}
	_, err := s.client.PutObject(ctx, s.bucket, location, strings.NewReader(text), int64(len(text)), minio.PutObjectOptions{
		ContentType: "application/xml",
	})
	return wrap("push", location, err)
}

func (s *S3) Exists(ctx context.Context, location string) (bool, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return false, wrap("stat", location, err)
	}
	_, err := s.client.StatObject(ctx, s.bucket, location, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNoSuchKey(err) {
		return false, nil
	}
	return false, wrap("stat", location, err)
}

// Move copies the object server side and removes the original.
func (s *S3) Move(ctx context.Context, location, newLocation string) error {
	exists, err := s.Exists(ctx, newLocation)
	if err != nil {
		return err
	}
	if exists {
		return wrap("move", newLocation, fs.ErrExist)
	}
	_, err = s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: s.bucket, Object: newLocation},
		minio.CopySrcOptions{Bucket: s.bucket, Object: location},
	)
	if err != nil {
		return wrap("move", location, translate(err))
	}
	return wrap("move", location, s.client.RemoveObject(ctx, s.bucket, location, minio.RemoveObjectOptions{}))
}

// List returns every key below the prefix.
func (s *S3) List(ctx context.Context) ([]string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return nil, wrap("list", s.bucket, err)
	}
	// Stops the listing goroutine when the loop returns early.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	keys := make([]string, 0, 64)
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, wrap("list", s.bucket, obj.Err)
		}
		if obj.Key == "" || strings.HasSuffix(obj.Key, "/") {
			continue
		}
		keys = append(keys, strings.TrimPrefix(obj.Key, s.prefix))
	}
	sort.Strings(keys)
	return keys, nil
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

func translate(err error) error {
	if isNoSuchKey(err) {
		return fmt.Errorf("%w: %v", ErrNotExist, err)
	}
	return err
}
