// Package output 读写路径清单：每行一个路径，保留重复。
package output

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/John-Robertt/ticpath/internal/infra/fsx"
)

// WritePathList 原子写入清单，每个路径一行、以 '\n' 结尾；path 是目录时返回 *fsx.PathTypeConflictError。
func WritePathList(path string, paths []string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("输出路径不能为空")
	}
	for i, p := range paths {
		if strings.ContainsAny(p, "\r\n") {
			return fmt.Errorf("第 %d 个路径包含换行：%q", i+1, p)
		}
	}
	return fsx.WriteStream(path, func(w *bufio.Writer) error {
		for _, p := range paths {
			if _, err := w.WriteString(p); err != nil {
				return err
			}
			if err := w.WriteByte('\n'); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadPathList 读回清单；空行被忽略。
func ReadPathList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make([]string, 0, 256)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
