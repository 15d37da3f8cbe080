package comment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mutsasns/mutsasns/backend/go-services/internal/article"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/article/repository"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/article/service"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/users"
	"github.com/mutsasns/mutsasns/backend/go-services/pkg/metrics"
)

// MaxContentLength bounds a comment body in characters.
const MaxContentLength = 1000

// Comments share the article service's error classes so one HTTP mapping
// covers both.
var (
	ErrNotFound   = service.ErrNotFound
	ErrBadRequest = service.ErrBadRequest
	ErrInternal   = service.ErrInternal
)

type Service struct {
	comments repository.CommentRepository
	articles repository.ArticleRepository
	users    service.UserResolver
	now      func() time.Time
}

func NewService(comments repository.CommentRepository, articles repository.ArticleRepository, resolver service.UserResolver) *Service {
	return &Service{comments: comments, articles: articles, users: resolver, now: time.Now}
}

// Create adds a comment by username to a visible article.
func (s *Service) Create(ctx context.Context, username string, articleID int64, content string) (c *article.Comment, err error) {
	defer func() { observe("comment_create", err) }()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: empty comment", ErrBadRequest)
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return nil, fmt.Errorf("%w: comment longer than %d characters", ErrBadRequest, MaxContentLength)
	}
	u, err := s.users.Resolve(ctx, username)
	if errors.Is(err, users.ErrNotFound) {
		return nil, fmt.Errorf("%w: user %q", ErrNotFound, username)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: resolve user: %w", ErrInternal, err)
	}
	if err := s.visibleArticle(ctx, articleID); err != nil {
		return nil, err
	}
	c = &article.Comment{ArticleID: articleID, Username: u.Username, Content: content}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("%w: create comment: %w", ErrInternal, err)
	}
	return c, nil
}

// List returns the visible comments of a visible article by ascending id.
func (s *Service) List(ctx context.Context, articleID int64) (out []*article.Comment, err error) {
	defer func() { observe("comment_list", err) }()

	if err := s.visibleArticle(ctx, articleID); err != nil {
		return nil, err
	}
	out, err = s.comments.ListByArticle(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("%w: list comments: %w", ErrInternal, err)
	}
	return out, nil
}

// Delete soft-deletes a comment. Only its author may delete it; anything
// else reads as not found.
func (s *Service) Delete(ctx context.Context, username string, articleID, commentID int64) (err error) {
	defer func() { observe("comment_delete", err) }()

	c, err := s.comments.Get(ctx, commentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: comment %d", ErrNotFound, commentID)
		}
		return fmt.Errorf("%w: load comment: %w", ErrInternal, err)
	}
	if c.ArticleID != articleID || c.Username != username {
		return fmt.Errorf("%w: comment %d", ErrNotFound, commentID)
	}
	c.Deleted = true
	c.DeletedAt = s.now().Format(article.DeletedAtLayout)
	if err := s.comments.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: comment %d", ErrNotFound, commentID)
		}
		return fmt.Errorf("%w: delete comment: %w", ErrInternal, err)
	}
	return nil
}

func (s *Service) visibleArticle(ctx context.Context, id int64) error {
	if _, err := s.articles.Get(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: article %d", ErrNotFound, id)
		}
		return fmt.Errorf("%w: load article %d: %w", ErrInternal, id, err)
	}
	return nil
}

func observe(op string, err error) {
	metrics.ArticleOperations.WithLabelValues(op, service.Result(err)).Inc()
}
