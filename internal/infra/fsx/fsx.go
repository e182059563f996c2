// Package fsx 提供输出清单的原子落盘：先写同目录临时文件，再 rename 到目标。
package fsx

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// 测试替换它以模拟 rename 失败。
var renameFunc = os.Rename

// PathTypeConflictError 表示目标已存在但不是普通文件（如目录）。
// run 把它映射为 error_code=write_failed。
type PathTypeConflictError struct {
	Path string
	Want string
	Got  string
}

func (e *PathTypeConflictError) Error() string {
	return fmt.Sprintf("目标路径类型冲突：%q（期望 %s，实际 %s）", e.Path, e.Want, e.Got)
}

func IsPathTypeConflict(err error) bool {
	var e *PathTypeConflictError
	return errors.As(err, &e)
}

// WriteFile 原子写入 data 到 path，目标已存在则覆盖。
func WriteFile(path string, data []byte) error {
	return WriteStream(path, func(w *bufio.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// WriteStream 把 fill 写出的内容原子落到 path。
// 父目录不存在时创建；fill 或任一步失败时目标保持原样，临时文件被清理。
func WriteStream(path string, fill func(w *bufio.Writer) error) error {
	dst := filepath.Clean(path)
	if err := checkTarget(dst); err != nil {
		return err
	}
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	bw := bufio.NewWriterSize(tmp, 64*1024)
	if err := fill(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := renameFunc(tmpName, dst); err != nil {
		return err
	}
	committed = true

	_ = syncDir(dir)
	return nil
}

// checkTarget 只允许目标不存在、是普通文件或符号链接。
func checkTarget(dst string) error {
	fi, err := os.Lstat(dst)
	switch {
	case os.IsNotExist(err):
		return nil
	case err != nil:
		return err
	case fi.IsDir():
		return &PathTypeConflictError{Path: dst, Want: "file", Got: "dir"}
	case !fi.Mode().IsRegular() && fi.Mode()&os.ModeSymlink == 0:
		return &PathTypeConflictError{Path: dst, Want: "regular file", Got: fi.Mode().Type().String()}
	}
	return nil
}

func syncDir(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
