// Package bucket 抽象“lookup 表所在的远端 bucket”。
//
// 三种后端：
//   - fs：已挂载（gcsfuse）的本地目录，基于 go-billy
//   - http：公共 bucket 的 HTTPS 直读（默认 storage.googleapis.com）
//   - s3：S3 兼容对象存储（GCS interop / MinIO / AWS），基于 minio-go
package bucket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/John-Robertt/ticpath/internal/infra/httpx"
)

const (
	KindFS   = "fs"
	KindHTTP = "http"
	KindS3   = "s3"
)

var (
	// ErrNotFound 表示对象不存在（可用 errors.Is 判断）。
	ErrNotFound = errors.New("bucket: object not found")
	// ErrListUnsupported 表示该后端无法列举对象。
	ErrListUnsupported = errors.New("bucket: list unsupported")
)

// Store 是只读的对象访问接口。
type Store interface {
	// Open 打开名为 name 的对象；调用方负责 Close。
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// List 返回顶层对象名（升序）。
	List(ctx context.Context) ([]string, error)
	// Describe 返回便于人读的位置描述（写入 report.path）。
	Describe() string
}

// Config 描述要构造的后端（由 config.EffectiveConfig 映射而来）。
type Config struct {
	Kind string

	// fs
	Dir string

	// http
	BaseURL  string
	ProxyURL string

	// s3
	Endpoint  string
	Region    string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	Secure    bool
}

// New 按 cfg.Kind 构造后端。
func New(cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case KindFS:
		if strings.TrimSpace(cfg.Dir) == "" {
			return nil, errors.New("bucket.dir 不能为空")
		}
		return NewOSFS(cfg.Dir), nil
	case KindHTTP:
		c, err := httpx.NewClient(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("bucket.proxy_url 无效：%w", err)
		}
		return NewHTTP(cfg.BaseURL, c)
	case KindS3:
		return NewS3(S3Options{
			Endpoint:  cfg.Endpoint,
			Region:    cfg.Region,
			Bucket:    cfg.Bucket,
			Prefix:    cfg.Prefix,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Secure:    cfg.Secure,
		})
	default:
		return nil, fmt.Errorf("未知 bucket 类型：%q", cfg.Kind)
	}
}

func notFound(name string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrNotFound, name, err)
}
