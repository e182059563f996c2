package bucket

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFS_OpenAndList(t *testing.T) {
	mem := memfs.New()
	require.NoError(t, util.WriteFile(mem, "sector1lookup.csv", []byte("a,b\n"), 0o644))
	require.NoError(t, util.WriteFile(mem, "sector2lookup.csv", []byte("c,d\n"), 0o644))
	require.NoError(t, mem.MkdirAll("sector3", 0o755))

	s := NewFS(mem, "mem")
	ctx := context.Background()

	rc, err := s.Open(ctx, "/sector2lookup.csv")
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "c,d\n", string(b))

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"sector1lookup.csv", "sector2lookup.csv"}, names)
	assert.Equal(t, "mem", s.Describe())
}

func TestFS_OpenMissing(t *testing.T) {
	s := NewFS(memfs.New(), "mem")
	_, err := s.Open(context.Background(), "sector9lookup.csv")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound), "err=%v", err)
}

func TestFS_OpenCanceled(t *testing.T) {
	s := NewFS(memfs.New(), "mem")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Open(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOSFS(t *testing.T) {
	dir := t.TempDir()
	s := NewOSFS(dir)
	require.NoError(t, util.WriteFile(s.fs, "sector1lookup.csv", []byte("x"), 0o644))

	names, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"sector1lookup.csv"}, names)
	assert.Equal(t, dir, s.Describe())
}

func TestCleanName(t *testing.T) {
	cases := map[string]string{
		"a.csv":          "a.csv",
		"/a.csv":         "a.csv",
		"dir/../a.csv":   "a.csv",
		"../../etc/pass": "etc/pass",
		" sub/a.csv ":    "sub/a.csv",
	}
	for in, want := range cases {
		got, err := cleanName(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "/", ".", "  "} {
		_, err := cleanName(in)
		assert.Error(t, err, "%q", in)
	}
}
