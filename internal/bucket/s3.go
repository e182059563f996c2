package bucket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Options 描述一个 S3 兼容 bucket。AccessKey 为空时匿名访问（公共 bucket）。
type S3Options struct {
	Endpoint  string // host[:port]，不含 scheme
	Region    string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	Secure    bool
}

// S3 通过 minio-go 读取 S3 兼容对象存储。
type S3 struct {
	client *minio.Client
	opts   S3Options
}

func NewS3(opts S3Options) (*S3, error) {
	opts.Endpoint = strings.TrimSpace(opts.Endpoint)
	opts.Bucket = strings.TrimSpace(opts.Bucket)
	if opts.Endpoint == "" {
		return nil, errors.New("bucket.endpoint 不能为空")
	}
	if opts.Bucket == "" {
		return nil, errors.New("bucket.name 不能为空")
	}
	opts.Prefix = strings.Trim(strings.TrimSpace(opts.Prefix), "/")

	c, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.Secure,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 S3 client 失败：%w", err)
	}
	return &S3{client: c, opts: opts}, nil
}

func (s *S3) key(name string) (string, error) {
	name, err := cleanName(name)
	if err != nil {
		return "", err
	}
	if s.opts.Prefix == "" {
		return name, nil
	}
	return s.opts.Prefix + "/" + name, nil
}

func (s *S3) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key, err := s.key(name)
	if err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.opts.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateError(key, err)
	}
	// GetObject 是惰性的：先 Stat 一次，让“对象不存在”在 Open 阶段就暴露出来。
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, translateError(key, err)
	}
	return obj, nil
}

func (s *S3) List(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prefix := ""
	if s.opts.Prefix != "" {
		prefix = s.opts.Prefix + "/"
	}

	names := make([]string, 0, 64)
	for info := range s.client.ListObjects(ctx, s.opts.Bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if info.Err != nil {
			return nil, translateError(prefix, info.Err)
		}
		n := strings.TrimPrefix(info.Key, prefix)
		if n == "" || strings.HasSuffix(n, "/") {
			continue
		}
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (s *S3) Describe() string {
	d := "s3://" + s.opts.Bucket
	if s.opts.Prefix != "" {
		d += "/" + s.opts.Prefix
	}
	return d + " (" + s.opts.Endpoint + ")"
}

func translateError(key string, err error) error {
	resp := minio.ToErrorResponse(err)
	switch {
	case resp.Code == "NoSuchKey", resp.StatusCode == http.StatusNotFound && resp.Code != "NoSuchBucket":
		return notFound(key, err)
	default:
		return fmt.Errorf("bucket: s3 %q: %w", key, err)
	}
}
