package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/mutsasns/mutsasns/backend/go-services/internal/config"
)

func TestFSStorage_PutCreatesDirAndOverwrites(t *testing.T) {
	mem := afero.NewMemMapFs()
	s := NewFSStorageOn(mem)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "media/article/7/bob_1.png", strings.NewReader("first"), 5, "image/png"))
	ok, err := afero.DirExists(mem, "media/article/7")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.Put(ctx, "media/article/7/bob_1.png", strings.NewReader("2nd"), 3, "image/png"))
	b, err := afero.ReadFile(mem, "media/article/7/bob_1.png")
	require.NoError(t, err)
	require.Equal(t, "2nd", string(b))
}

func TestFSStorage_DeleteMissingIsNoop(t *testing.T) {
	s := NewFSStorageOn(afero.NewMemMapFs())
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "a/b.png", strings.NewReader("x"), 1, ""))
	require.NoError(t, s.Delete(ctx, "a/b.png"))
	exists, err := s.Exists("a/b.png")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, s.Delete(ctx, "a/b.png"))
}

func TestFSStorage_ReadOnlyFails(t *testing.T) {
	s := NewFSStorageOn(afero.NewReadOnlyFs(afero.NewMemMapFs()))
	err := s.Put(context.Background(), "media/x.png", strings.NewReader("x"), 1, "")
	require.Error(t, err)
}

func TestNew_SelectsBackend(t *testing.T) {
	cfg := &config.Config{}
	cfg.Media.Backend = "fs"
	cfg.Media.BaseDir = t.TempDir()
	b, err := New(context.Background(), cfg)
	require.NoError(t, err)
	require.Equal(t, "fs", b.Name())

	cfg.Media.Backend = "ftp"
	_, err = New(context.Background(), cfg)
	require.Error(t, err)
}
