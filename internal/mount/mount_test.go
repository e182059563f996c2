package mount

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

type call struct {
	name string
	args []string
}

func stubRun(t *testing.T, out string, err error) *[]call {
	t.Helper()
	var calls []call
	old := runFunc
	runFunc = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		calls = append(calls, call{name: name, args: append([]string(nil), args...)})
		return []byte(out), err
	}
	t.Cleanup(func() { runFunc = old })
	return &calls
}

func stubMountinfo(t *testing.T, content string) {
	t.Helper()
	p := filepath.Join(t.TempDir(), "mountinfo")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("写入 mountinfo 失败：%v", err)
	}
	old := mountinfoPath
	mountinfoPath = p
	t.Cleanup(func() { mountinfoPath = old })
}

func TestMount_RunsGcsfuseAndCreatesDir(t *testing.T) {
	stubMountinfo(t, "")
	calls := stubRun(t, "", nil)

	dir := filepath.Join(t.TempDir(), "tesslcs")
	res, err := Mount(context.Background(), Spec{Bucket: "tess-goddard-lcs", Dir: dir, ImplicitDirs: true})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if res.AlreadyMounted {
		t.Fatalf("不应视为已挂载")
	}
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		t.Fatalf("应创建挂载目录：%v", err)
	}
	if len(*calls) != 1 {
		t.Fatalf("期望调用 1 次，实际 %d", len(*calls))
	}
	c := (*calls)[0]
	if c.name != "gcsfuse" {
		t.Fatalf("程序名不符：%q", c.name)
	}
	want := []string{"--implicit-dirs", "tess-goddard-lcs", dir}
	if !reflect.DeepEqual(c.args, want) {
		t.Fatalf("参数不符：%v != %v", c.args, want)
	}
}

func TestMount_SkipsWhenAlreadyMounted(t *testing.T) {
	dir := t.TempDir()
	real, _ := filepath.EvalSymlinks(dir)
	escaped := strings.ReplaceAll(real, " ", `\040`)
	stubMountinfo(t, "22 1 0:21 / /proc rw - proc proc rw\n36 35 0:32 / "+escaped+" rw,nosuid - fuse.gcsfuse tess-goddard-lcs rw\n")
	calls := stubRun(t, "", nil)

	res, err := Mount(context.Background(), Spec{Bucket: "b", Dir: dir})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !res.AlreadyMounted {
		t.Fatalf("应识别为已挂载")
	}
	if len(*calls) != 0 {
		t.Fatalf("已挂载时不应执行 gcsfuse")
	}
}

func TestMount_ExecFailure(t *testing.T) {
	stubMountinfo(t, "")
	stubRun(t, "daemonize.Run: readFromProcess: sub-process: mountWithArgs\n", errors.New("exit status 1"))

	_, err := Mount(context.Background(), Spec{Binary: "/opt/gcsfuse", Bucket: "b", Dir: t.TempDir()})
	var me *Error
	if !errors.As(err, &me) {
		t.Fatalf("期望 *mount.Error，实际：%T %v", err, err)
	}
	if me.Stage != "exec" {
		t.Fatalf("stage 不符：%q", me.Stage)
	}
	if !strings.Contains(me.Error(), "mountWithArgs") {
		t.Fatalf("错误信息应包含命令输出：%q", me.Error())
	}
}

func TestMount_Validate(t *testing.T) {
	stubRun(t, "", nil)
	for _, s := range []Spec{{Dir: "x"}, {Bucket: "b"}} {
		_, err := Mount(context.Background(), s)
		var me *Error
		if !errors.As(err, &me) || me.Stage != "validate" {
			t.Fatalf("期望 validate 错误，实际：%v", err)
		}
	}
}

func TestSpecArgs_ExtraArgs(t *testing.T) {
	got := Spec{Bucket: "b", Dir: "/m", ExtraArgs: []string{"-o", "ro"}}.Args()
	want := []string{"-o", "ro", "b", "/m"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("参数不符：%v != %v", got, want)
	}
}

func TestUnescapeMountinfo(t *testing.T) {
	cases := map[string]string{
		`/mnt/a\040b`: "/mnt/a b",
		`/plain`:      "/plain",
		`/trail\04`:   `/trail\04`,
	}
	for in, want := range cases {
		if got := unescapeMountinfo(in); got != want {
			t.Fatalf("unescape(%q)=%q，期望 %q", in, got, want)
		}
	}
}
