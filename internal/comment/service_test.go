package comment

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mutsasns/mutsasns/backend/go-services/internal/article"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/article/repository"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/models"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/users"
)

type fakeResolver map[string]bool

func (f fakeResolver) Resolve(_ context.Context, username string) (*models.User, error) {
	if !f[username] {
		return nil, users.ErrNotFound
	}
	return &models.User{Username: username}, nil
}

type fixture struct {
	svc      *Service
	articles *repository.MemoryArticleRepo
	comments *repository.MemoryCommentRepo
	post     *article.Article
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		articles: repository.NewMemoryArticleRepo(),
		comments: repository.NewMemoryCommentRepo(),
	}
	f.svc = NewService(f.comments, f.articles, fakeResolver{"bob": true, "alice": true})
	f.svc.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	f.post = &article.Article{Title: "t", Username: "bob"}
	require.NoError(t, f.articles.Create(context.Background(), f.post))
	return f
}

func TestCreateAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c1, err := f.svc.Create(ctx, "alice", f.post.ID, "  nice post ")
	require.NoError(t, err)
	require.Equal(t, "nice post", c1.Content)
	require.Equal(t, "alice", c1.Username)
	_, err = f.svc.Create(ctx, "bob", f.post.ID, "thanks")
	require.NoError(t, err)

	list, err := f.svc.List(ctx, f.post.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, c1.ID, list[0].ID)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, "alice", f.post.ID, "   ")
	require.ErrorIs(t, err, ErrBadRequest)
	_, err = f.svc.Create(ctx, "alice", f.post.ID, strings.Repeat("x", MaxContentLength+1))
	require.ErrorIs(t, err, ErrBadRequest)
	_, err = f.svc.Create(ctx, "ghost", f.post.ID, "hi")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Create(ctx, "alice", 999, "hi")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeletedArticleHidesComments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Create(ctx, "alice", f.post.ID, "first")
	require.NoError(t, err)

	f.post.Deleted = true
	require.NoError(t, f.articles.Update(ctx, f.post))

	_, err = f.svc.List(ctx, f.post.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Create(ctx, "alice", f.post.ID, "second")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, err := f.svc.Create(ctx, "alice", f.post.ID, "mine")
	require.NoError(t, err)

	// the article owner is not the comment author
	require.ErrorIs(t, f.svc.Delete(ctx, "bob", f.post.ID, c.ID), ErrNotFound)
	require.ErrorIs(t, f.svc.Delete(ctx, "alice", f.post.ID+1, c.ID), ErrNotFound)
	require.ErrorIs(t, f.svc.Delete(ctx, "alice", f.post.ID, 999), ErrNotFound)

	require.NoError(t, f.svc.Delete(ctx, "alice", f.post.ID, c.ID))
	list, err := f.svc.List(ctx, f.post.ID)
	require.NoError(t, err)
	require.Empty(t, list)
	require.ErrorIs(t, f.svc.Delete(ctx, "alice", f.post.ID, c.ID), ErrNotFound)
}
