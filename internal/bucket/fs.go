package bucket

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// FS 以 go-billy 文件系统作为 bucket（生产：挂载目录上的 osfs；测试：memfs）。
type FS struct {
	fs   billy.Filesystem
	desc string
}

// NewFS 包装任意 billy.Filesystem；desc 用于 Describe。
func NewFS(fs billy.Filesystem, desc string) *FS {
	return &FS{fs: fs, desc: desc}
}

// NewOSFS 以本地目录 dir（通常是 gcsfuse 挂载点）为根。
func NewOSFS(dir string) *FS {
	return NewFS(osfs.New(dir), dir)
}

func (s *FS) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound(name, err)
		}
		return nil, fmt.Errorf("bucket: open %q: %w", name, err)
	}
	return f, nil
}

func (s *FS) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	infos, err := s.fs.ReadDir(".")
	if err != nil {
		return nil, fmt.Errorf("bucket: readdir %q: %w", s.desc, err)
	}
	names := make([]string, 0, len(infos))
	for _, fi := range infos {
		if fi.IsDir() {
			continue
		}
		names = append(names, fi.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (s *FS) Describe() string { return s.desc }

// cleanName 统一对象名：去掉前导 '/'，拒绝越界路径。
func cleanName(name string) (string, error) {
	n := path.Clean("/" + strings.TrimSpace(name))
	n = strings.TrimPrefix(n, "/")
	if n == "" || n == "." {
		return "", fmt.Errorf("非法对象名：%q", name)
	}
	return n, nil
}
