package bucket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// DefaultHTTPBase 是公共 GCS bucket 的 HTTPS 前缀（后接 bucket 名）。
const DefaultHTTPBase = "https://storage.googleapis.com/"

// HTTPStatusError 表示对象服务返回了非 2xx 的 HTTP 状态码。
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
}

// HTTP 通过 HTTPS 直读公共 bucket 的对象。该后端不支持 List。
type HTTP struct {
	base   *url.URL
	client *http.Client
}

func NewHTTP(baseURL string, c *http.Client) (*HTTP, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("bucket.base_url 不能为空")
	}
	if c == nil {
		return nil, errors.New("http client 不能为空")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("bucket.base_url 无效：%q", baseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("bucket.base_url 必须是 http/https：%q", baseURL)
	}
	return &HTTP{base: u, client: c}, nil
}

// ObjectURL 返回对象的完整 URL。
func (s *HTTP) ObjectURL(name string) (string, error) {
	name, err := cleanName(name)
	if err != nil {
		return "", err
	}
	return s.base.JoinPath(strings.Split(name, "/")...).String(), nil
}

func (s *HTTP) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	u, err := s.ObjectURL(name)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp.Body, nil
	}

	_ = resp.Body.Close()
	se := &HTTPStatusError{URL: u, StatusCode: resp.StatusCode}
	if resp.StatusCode == http.StatusNotFound {
		return nil, notFound(name, se)
	}
	return nil, se
}

func (s *HTTP) List(ctx context.Context) ([]string, error) {
	return nil, ErrListUnsupported
}

func (s *HTTP) Describe() string { return s.base.String() }
