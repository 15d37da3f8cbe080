package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mutsasns/mutsasns/backend/go-services/internal/article"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/article/repository"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/events"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/media"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/models"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/users"
	"github.com/mutsasns/mutsasns/backend/go-services/pkg/logger"
	"github.com/mutsasns/mutsasns/backend/go-services/pkg/metrics"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")
	ErrInternal   = errors.New("internal error")
)

// UserResolver maps the authenticated username to its user record.
type UserResolver interface {
	Resolve(ctx context.Context, username string) (*models.User, error)
}

// ArticleInput carries the fields of a create or update request. Images are
// appended in slice order.
type ArticleInput struct {
	Title   string
	Content string
	Images  []media.Upload
}

// Service implements the article operations. The caller's username is an
// explicit argument on every operation that needs ownership.
type Service struct {
	articles repository.ArticleRepository
	images   repository.ImageRepository
	users    UserResolver
	writer   *media.Writer
	events   events.Publisher
	now      func() time.Time
}

type Option func(*Service)

// WithPublisher sets where lifecycle events go; the default drops them.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.events = p }
}

// WithClock overrides time.Now (used for deletedAt).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(articles repository.ArticleRepository, images repository.ImageRepository, resolver UserResolver, writer *media.Writer, opts ...Option) *Service {
	s := &Service{
		articles: articles,
		images:   images,
		users:    resolver,
		writer:   writer,
		events:   events.NopPublisher{},
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Create persists a new article owned by username, then writes its images
// numbered 1..N. A failure while writing images leaves the article with the
// images stored so far.
func (s *Service) Create(ctx context.Context, username string, in ArticleInput) (view article.ArticleView, err error) {
	defer func() { observe("create", err) }()

	u, err := s.resolve(ctx, username)
	if err != nil {
		return article.ArticleView{}, err
	}
	a := &article.Article{
		Title:    in.Title,
		Content:  in.Content,
		Username: u.Username,
		Images:   []article.Image{},
	}
	if err := s.articles.Create(ctx, a); err != nil {
		return article.ArticleView{}, fmt.Errorf("%w: create article: %w", ErrInternal, err)
	}
	if err := s.attach(ctx, a, 1, in.Images); err != nil {
		return article.ArticleView{}, err
	}
	s.publish(ctx, events.Event{Type: events.ArticleCreated, ArticleID: a.ID, Username: a.Username})
	return a.View(), nil
}

// Get returns a visible article with its images. No ownership check.
func (s *Service) Get(ctx context.Context, id int64) (view article.ArticleView, err error) {
	defer func() { observe("get", err) }()

	a, err := s.articles.Get(ctx, id)
	if err != nil {
		return article.ArticleView{}, mapRepoErr(err, "article %d", id)
	}
	if err := s.loadImages(ctx, a); err != nil {
		return article.ArticleView{}, err
	}
	return a.View(), nil
}

// Page lists the caller's visible articles by ascending id. page is 0-based.
func (s *Service) Page(ctx context.Context, username string, page, size int) (out article.Page[article.ArticleSummary], err error) {
	defer func() { observe("page", err) }()

	if page < 0 || size < 1 {
		return out, fmt.Errorf("%w: invalid page %d size %d", ErrBadRequest, page, size)
	}
	u, err := s.resolve(ctx, username)
	if err != nil {
		return out, err
	}
	if page > math.MaxInt/size-1 {
		// no store can reach an offset this large; only the total is real
		_, total, err := s.articles.ListByOwner(ctx, u.Username, 0, 1)
		if err != nil {
			return out, fmt.Errorf("%w: count articles: %w", ErrInternal, err)
		}
		return article.NewPage([]article.ArticleSummary{}, page, size, total), nil
	}
	list, total, err := s.articles.ListByOwner(ctx, u.Username, page, size)
	if err != nil {
		return out, fmt.Errorf("%w: list articles: %w", ErrInternal, err)
	}
	summaries := make([]article.ArticleSummary, 0, len(list))
	for _, a := range list {
		if err := s.loadImages(ctx, a); err != nil {
			return out, err
		}
		summaries = append(summaries, a.Summary())
	}
	return article.NewPage(summaries, page, size, total), nil
}

// Update overwrites title and content of an owned article and appends new
// images numbered after the highest existing sequence number.
func (s *Service) Update(ctx context.Context, username string, id int64, in ArticleInput) (view article.ArticleView, err error) {
	defer func() { observe("update", err) }()

	a, err := s.owned(ctx, username, id)
	if err != nil {
		return article.ArticleView{}, err
	}
	if err := s.loadImages(ctx, a); err != nil {
		return article.ArticleView{}, err
	}
	a.Title = in.Title
	a.Content = in.Content

	if err := s.attach(ctx, a, a.MaxSeq()+1, in.Images); err != nil {
		logger.Errorf("update article %d: %v", a.ID, err)
		return article.ArticleView{}, err
	}
	if err := s.articles.Update(ctx, a); err != nil {
		return article.ArticleView{}, mapRepoErr(err, "article %d", id)
	}
	s.publish(ctx, events.Event{Type: events.ArticleUpdated, ArticleID: a.ID, Username: a.Username})
	return a.View(), nil
}

// DeleteImage removes one image file and its record from an owned article.
func (s *Service) DeleteImage(ctx context.Context, username string, articleID, imageID int64) (err error) {
	defer func() { observe("delete_image", err) }()

	a, err := s.owned(ctx, username, articleID)
	if err != nil {
		return err
	}
	img, err := s.images.Get(ctx, imageID)
	if err != nil {
		return mapRepoErr(err, "image %d", imageID)
	}
	if img.ArticleID != a.ID {
		return fmt.Errorf("%w: image %d does not belong to article %d", ErrBadRequest, imageID, articleID)
	}
	// backends treat an already missing file as removed, so a lost file
	// never blocks dropping its record
	if err := s.writer.Remove(ctx, a.Username, a.ID, img.URL); err != nil {
		return fmt.Errorf("%w: %w", ErrInternal, err)
	}
	if err := s.images.Delete(ctx, img.ID); err != nil {
		return mapRepoErr(err, "image %d", imageID)
	}
	s.publish(ctx, events.Event{Type: events.ImageDeleted, ArticleID: a.ID, ImageID: img.ID, Username: a.Username})
	return nil
}

// Delete soft-deletes an owned article. Its images stay in place.
func (s *Service) Delete(ctx context.Context, username string, id int64) (err error) {
	defer func() { observe("delete", err) }()

	a, err := s.owned(ctx, username, id)
	if err != nil {
		return err
	}
	a.Deleted = true
	a.DeletedAt = s.now().Format(article.DeletedAtLayout)
	if err := s.articles.Update(ctx, a); err != nil {
		return mapRepoErr(err, "article %d", id)
	}
	s.publish(ctx, events.Event{Type: events.ArticleDeleted, ArticleID: a.ID, Username: a.Username})
	return nil
}

func (s *Service) resolve(ctx context.Context, username string) (*models.User, error) {
	u, err := s.users.Resolve(ctx, username)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %q", ErrNotFound, username)
		}
		return nil, fmt.Errorf("%w: resolve user: %w", ErrInternal, err)
	}
	return u, nil
}

// owned loads a visible article belonging to username. Foreign and missing
// articles are both ErrNotFound.
func (s *Service) owned(ctx context.Context, username string, id int64) (*article.Article, error) {
	u, err := s.resolve(ctx, username)
	if err != nil {
		return nil, err
	}
	a, err := s.articles.GetOwned(ctx, id, u.Username)
	if err != nil {
		return nil, mapRepoErr(err, "article %d", id)
	}
	return a, nil
}

func (s *Service) loadImages(ctx context.Context, a *article.Article) error {
	imgs, err := s.images.ListByArticle(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("%w: list images of article %d: %w", ErrInternal, a.ID, err)
	}
	a.Images = imgs
	return nil
}

// attach writes uploads as images start, start+1, ... and records each one.
// A record that cannot be saved has its file removed again.
func (s *Service) attach(ctx context.Context, a *article.Article, start int, uploads []media.Upload) error {
	for i, up := range uploads {
		seq := start + i
		st, err := s.writer.Write(ctx, a.Username, a.ID, seq, up)
		if err != nil {
			return fmt.Errorf("%w: image %d of article %d: %w", ErrInternal, seq, a.ID, err)
		}
		img := &article.Image{ArticleID: a.ID, URL: st.URL, Seq: seq}
		if err := s.images.Create(ctx, img); err != nil {
			if rmErr := s.writer.RemoveKey(ctx, st.Key); rmErr != nil {
				logger.Errorf("orphaned image file %s: %v", st.Key, rmErr)
			}
			return fmt.Errorf("%w: save image %d of article %d: %w", ErrInternal, seq, a.ID, err)
		}
		a.Images = append(a.Images, *img)
	}
	return nil
}

// publish is best effort; the change is already committed.
func (s *Service) publish(ctx context.Context, e events.Event) {
	e.At = s.now().UTC()
	if err := s.events.Publish(ctx, e); err != nil {
		logger.Warnf("publish %s for article %d: %v", e.Type, e.ArticleID, err)
	}
}

func mapRepoErr(err error, format string, args ...interface{}) error {
	what := fmt.Sprintf(format, args...)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return fmt.Errorf("%w: %s: %w", ErrInternal, what, err)
}

func observe(op string, err error) {
	metrics.ArticleOperations.WithLabelValues(op, Result(err)).Inc()
}

// Result classifies an error for metrics and logs.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrBadRequest):
		return "bad_request"
	}
	return "internal"
}
