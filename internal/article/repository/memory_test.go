package repository

import (
	"context"
	"math"
	"testing"

	"github.com/mutsasns/mutsasns/backend/go-services/internal/article"
	"github.com/stretchr/testify/require"
)

func TestMemoryArticleRepo_SoftDeleteIsInvisible(t *testing.T) {
	r := NewMemoryArticleRepo()
	ctx := context.Background()

	a := &article.Article{Title: "t", Content: "c", Username: "bob"}
	require.NoError(t, r.Create(ctx, a))
	require.Equal(t, int64(1), a.ID)

	got, err := r.GetOwned(ctx, a.ID, "bob")
	require.NoError(t, err)
	require.Equal(t, "t", got.Title)

	_, err = r.GetOwned(ctx, a.ID, "alice")
	require.ErrorIs(t, err, ErrNotFound)

	got.Deleted = true
	got.DeletedAt = "2024-01-02 03:04:05"
	require.NoError(t, r.Update(ctx, got))

	_, err = r.Get(ctx, a.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = r.GetOwned(ctx, a.ID, "bob")
	require.ErrorIs(t, err, ErrNotFound)
	list, total, err := r.ListByOwner(ctx, "bob", 0, 10)
	require.NoError(t, err)
	require.Empty(t, list)
	require.Zero(t, total)

	// updates against a hidden row fail too
	require.ErrorIs(t, r.Update(ctx, got), ErrNotFound)

	raw, ok := r.Raw(a.ID)
	require.True(t, ok)
	require.True(t, raw.Deleted)
}

func TestMemoryArticleRepo_ListByOwnerPages(t *testing.T) {
	r := NewMemoryArticleRepo()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, r.Create(ctx, &article.Article{Title: "bob", Username: "bob"}))
		require.NoError(t, r.Create(ctx, &article.Article{Title: "alice", Username: "alice"}))
	}

	page0, total, err := r.ListByOwner(ctx, "bob", 0, 2)
	require.NoError(t, err)
	require.Equal(t, int64(5), total)
	require.Len(t, page0, 2)
	require.Less(t, page0[0].ID, page0[1].ID)

	page2, _, err := r.ListByOwner(ctx, "bob", 2, 2)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	require.Greater(t, page2[0].ID, page0[1].ID)

	beyond, _, err := r.ListByOwner(ctx, "bob", 9, 2)
	require.NoError(t, err)
	require.Empty(t, beyond)
	huge, total, err := r.ListByOwner(ctx, "bob", math.MaxInt64/10, 20)
	require.NoError(t, err)
	require.Empty(t, huge)
	require.Equal(t, int64(5), total)
}

func TestMemoryImageRepo_CRUD(t *testing.T) {
	r := NewMemoryImageRepo()
	ctx := context.Background()

	a := &article.Image{ArticleID: 1, URL: "/static/article/1/bob_1.png", Seq: 1}
	b := &article.Image{ArticleID: 1, URL: "/static/article/1/bob_2.png", Seq: 2}
	other := &article.Image{ArticleID: 2, URL: "/static/article/2/al_1.png", Seq: 1}
	for _, img := range []*article.Image{a, b, other} {
		require.NoError(t, r.Create(ctx, img))
	}

	list, err := r.ListByArticle(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, a.ID, list[0].ID)

	require.NoError(t, r.Delete(ctx, a.ID))
	_, err = r.Get(ctx, a.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, r.Delete(ctx, a.ID), ErrNotFound)
}

func TestMemoryCommentRepo_SoftDelete(t *testing.T) {
	r := NewMemoryCommentRepo()
	ctx := context.Background()

	c := &article.Comment{ArticleID: 1, Username: "alice", Content: "nice"}
	require.NoError(t, r.Create(ctx, c))
	require.NoError(t, r.Create(ctx, &article.Comment{ArticleID: 1, Username: "bob", Content: "thanks"}))

	c.Deleted = true
	require.NoError(t, r.Update(ctx, c))

	_, err := r.Get(ctx, c.ID)
	require.ErrorIs(t, err, ErrNotFound)
	list, err := r.ListByArticle(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "bob", list[0].Username)
}
