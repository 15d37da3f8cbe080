package repository

import (
	"context"
	"errors"

	"github.com/mutsasns/mutsasns/backend/go-services/internal/article"
)

var (
	ErrNotFound = errors.New("record not found")
)

// ArticleRepository persists articles. Every read excludes soft-deleted
// rows; callers never see an article with Deleted=true. Returned articles
// carry no images; those live in ImageRepository.
type ArticleRepository interface {
	Create(ctx context.Context, a *article.Article) error
	Get(ctx context.Context, id int64) (*article.Article, error)
	GetOwned(ctx context.Context, id int64, username string) (*article.Article, error)
	// ListByOwner returns one page ordered by ascending id plus the total
	// number of visible articles for the owner.
	ListByOwner(ctx context.Context, username string, page, size int) ([]*article.Article, int64, error)
	// Update writes title, content, deleted and deletedAt of a visible article.
	Update(ctx context.Context, a *article.Article) error
}

// ImageRepository persists article images. Images are deleted physically.
type ImageRepository interface {
	Create(ctx context.Context, img *article.Image) error
	Get(ctx context.Context, id int64) (*article.Image, error)
	// ListByArticle returns images ordered by ascending id.
	ListByArticle(ctx context.Context, articleID int64) ([]article.Image, error)
	Delete(ctx context.Context, id int64) error
}

// CommentRepository persists comments with the same visibility rule as
// ArticleRepository.
type CommentRepository interface {
	Create(ctx context.Context, c *article.Comment) error
	Get(ctx context.Context, id int64) (*article.Comment, error)
	ListByArticle(ctx context.Context, articleID int64) ([]*article.Comment, error)
	Update(ctx context.Context, c *article.Comment) error
}
