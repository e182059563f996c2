// Package mount 负责把远端 bucket 通过 gcsfuse 挂载到本地目录。
//
// 挂载是一次性的外部副作用：目录已出现在 /proc/self/mountinfo 时不会重复挂载。
package mount

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const DefaultBinary = "gcsfuse"

// 以下均可在测试中替换。
var (
	runFunc = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return exec.CommandContext(ctx, name, args...).CombinedOutput()
	}
	mountinfoPath = "/proc/self/mountinfo"
)

// Spec 描述一次挂载。
type Spec struct {
	Binary       string
	Bucket       string
	Dir          string
	ImplicitDirs bool
	ExtraArgs    []string
}

// Args 返回传给 gcsfuse 的参数（不含程序名）。
func (s Spec) Args() []string {
	args := make([]string, 0, 3+len(s.ExtraArgs))
	if s.ImplicitDirs {
		args = append(args, "--implicit-dirs")
	}
	args = append(args, s.ExtraArgs...)
	return append(args, s.Bucket, s.Dir)
}

// Result 是挂载结果。
type Result struct {
	Dir            string
	AlreadyMounted bool
}

// Error 表示挂载失败；Stage 为 "validate" / "mkdir" / "exec"。
type Error struct {
	Stage  string
	Err    error
	Output string
}

func (e *Error) Error() string {
	if e == nil {
		return "mount error"
	}
	msg := fmt.Sprintf("挂载失败（%s）：%v", e.Stage, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "：" + out
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Mounter 抽象挂载动作，便于 run 管线注入假实现。
type Mounter interface {
	Mount(ctx context.Context, spec Spec) (Result, error)
}

// Gcsfuse 是基于 gcsfuse 命令的 Mounter。
type Gcsfuse struct{}

func (Gcsfuse) Mount(ctx context.Context, spec Spec) (Result, error) {
	return Mount(ctx, spec)
}

// Mount 创建挂载目录并执行一次 gcsfuse。
func Mount(ctx context.Context, spec Spec) (Result, error) {
	if strings.TrimSpace(spec.Bucket) == "" {
		return Result{}, &Error{Stage: "validate", Err: errors.New("bucket 不能为空")}
	}
	if strings.TrimSpace(spec.Dir) == "" {
		return Result{}, &Error{Stage: "validate", Err: errors.New("挂载目录不能为空")}
	}
	dir, err := filepath.Abs(spec.Dir)
	if err != nil {
		return Result{}, &Error{Stage: "validate", Err: err}
	}
	spec.Dir = dir

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, &Error{Stage: "mkdir", Err: err}
	}

	if mounted, err := IsMounted(dir); err == nil && mounted {
		return Result{Dir: dir, AlreadyMounted: true}, nil
	}

	bin := strings.TrimSpace(spec.Binary)
	if bin == "" {
		bin = DefaultBinary
	}
	out, err := runFunc(ctx, bin, spec.Args()...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return Result{}, &Error{Stage: "exec", Err: err, Output: string(out)}
	}
	return Result{Dir: dir}, nil
}

// IsMounted 判断 dir 是否是一个挂载点（读取 mountinfo；非 Linux 平台返回错误）。
func IsMounted(dir string) (bool, error) {
	f, err := os.Open(mountinfoPath)
	if err != nil {
		return false, err
	}
	defer f.Close()

	want := filepath.Clean(dir)
	if real, err := filepath.EvalSymlinks(want); err == nil {
		want = real
	}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		// 字段：id parent major:minor root mount_point ...
		fields := strings.Fields(sc.Text())
		if len(fields) < 5 {
			continue
		}
		if unescapeMountinfo(fields[4]) == want {
			return true, nil
		}
	}
	return false, sc.Err()
}

// unescapeMountinfo 还原 mountinfo 中的八进制转义（如 "\040" 表示空格）。
func unescapeMountinfo(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+4 <= len(s) {
			if v, err := strconv.ParseUint(s[i+1:i+4], 8, 8); err == nil {
				b.WriteByte(byte(v))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
