package media

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/mutsasns/mutsasns/backend/go-services/internal/storage"
)

func TestExtension(t *testing.T) {
	cases := map[string]string{
		"a.png":            "png",
		"photo.tar.JPG":    "JPG",
		"noext":            "",
		"../../etc/x.p/ng": "",
		`C:\pics\cat.gif`:  "gif",
		"weird.p?n*g":      "png",
		"trailing.":        "",
	}
	for in, want := range cases {
		require.Equal(t, want, Extension(in), "Extension(%q)", in)
	}
}

func TestArticleLayout(t *testing.T) {
	l := ArticleLayout
	name := l.FileName("bob", 1, "a.png")
	require.Equal(t, "bob_1.png", name)
	key := l.Key("bob", 7, name)
	require.Equal(t, "media/article/7/bob_1.png", key)
	url := l.URL(key)
	require.Equal(t, "/static/article/7/bob_1.png", url)
	require.Equal(t, key, l.KeyFromURL("bob", 7, url))
	require.Equal(t, "bob_2", l.FileName("bob", 2, "README"))
}

func TestFeedLayout(t *testing.T) {
	l := FeedLayout
	name := l.FileName("bob", 3, "b.jpg")
	require.Equal(t, "bob3.jpg", name)
	key := l.Key("bob", 7, name)
	require.Equal(t, "article/bob/7/bob3.jpg", key)
	url := l.URL(key)
	require.Equal(t, "/static/bob/7/bob3.jpg", url)
	require.Equal(t, key, l.KeyFromURL("bob", 7, url))
}

func TestLayoutByName(t *testing.T) {
	l, err := LayoutByName("feed")
	require.NoError(t, err)
	require.Equal(t, "feed", l.Name)
	_, err = LayoutByName("gallery")
	require.Error(t, err)
}

func TestWriter_WriteAndRemove(t *testing.T) {
	mem := afero.NewMemMapFs()
	w := NewWriter(ArticleLayout, storage.NewFSStorageOn(mem))
	ctx := context.Background()

	st, err := w.Write(ctx, "bob", 3, 1, FromBytes("pic.png", []byte("png-bytes")))
	require.NoError(t, err)
	require.Equal(t, "media/article/3/bob_1.png", st.Key)
	require.Equal(t, "/static/article/3/bob_1.png", st.URL)

	b, err := afero.ReadFile(mem, st.Key)
	require.NoError(t, err)
	require.Equal(t, "png-bytes", string(b))

	require.NoError(t, w.Remove(ctx, "bob", 3, st.URL))
	ok, err := afero.Exists(mem, st.Key)
	require.NoError(t, err)
	require.False(t, ok)
}
