package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mutsasns/mutsasns/backend/go-services/internal/article"
)

// MemoryArticleRepo is an in-memory ArticleRepository used by unit tests and
// when no MongoDB is configured.
type MemoryArticleRepo struct {
	mu    sync.RWMutex
	seq   int64
	store map[int64]*article.Article
}

func NewMemoryArticleRepo() *MemoryArticleRepo {
	return &MemoryArticleRepo{store: make(map[int64]*article.Article)}
}

func (m *MemoryArticleRepo) Create(_ context.Context, a *article.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	a.ID = m.seq
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	m.store[a.ID] = cloneArticle(a)
	return nil
}

// visible is the single soft-delete predicate for the memory store.
func (m *MemoryArticleRepo) visible(id int64) (*article.Article, bool) {
	a, ok := m.store[id]
	if !ok || a.Deleted {
		return nil, false
	}
	return a, true
}

func (m *MemoryArticleRepo) Get(_ context.Context, id int64) (*article.Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.visible(id)
	if !ok {
		return nil, ErrNotFound
	}
	return cloneArticle(a), nil
}

func (m *MemoryArticleRepo) GetOwned(_ context.Context, id int64, username string) (*article.Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.visible(id)
	if !ok || a.Username != username {
		return nil, ErrNotFound
	}
	return cloneArticle(a), nil
}

func (m *MemoryArticleRepo) ListByOwner(_ context.Context, username string, page, size int) ([]*article.Article, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var all []*article.Article
	for id := range m.store {
		if a, ok := m.visible(id); ok && a.Username == username {
			all = append(all, a)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := int64(len(all))
	if size < 1 || page < 0 || page >= (len(all)+size-1)/size {
		return []*article.Article{}, total, nil
	}
	start := page * size
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	out := make([]*article.Article, 0, end-start)
	for _, a := range all[start:end] {
		out = append(out, cloneArticle(a))
	}
	return out, total, nil
}

func (m *MemoryArticleRepo) Update(_ context.Context, a *article.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.visible(a.ID)
	if !ok {
		return ErrNotFound
	}
	cur.Title = a.Title
	cur.Content = a.Content
	cur.Deleted = a.Deleted
	cur.DeletedAt = a.DeletedAt
	cur.UpdatedAt = time.Now().UTC()
	a.UpdatedAt = cur.UpdatedAt
	return nil
}

// Raw returns an article regardless of its deleted flag. Only for tests
// asserting on stored state.
func (m *MemoryArticleRepo) Raw(id int64) (*article.Article, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.store[id]
	if !ok {
		return nil, false
	}
	return cloneArticle(a), true
}

func cloneArticle(a *article.Article) *article.Article {
	cp := *a
	cp.Images = nil
	return &cp
}

// MemoryImageRepo is an in-memory ImageRepository.
type MemoryImageRepo struct {
	mu    sync.RWMutex
	seq   int64
	store map[int64]article.Image
	// failCreate makes Create fail; set by tests exercising cleanup paths.
	failCreate error
}

func NewMemoryImageRepo() *MemoryImageRepo {
	return &MemoryImageRepo{store: make(map[int64]article.Image)}
}

// FailCreate makes subsequent Create calls return err (nil resets).
func (m *MemoryImageRepo) FailCreate(err error) {
	m.mu.Lock()
	m.failCreate = err
	m.mu.Unlock()
}

func (m *MemoryImageRepo) Create(_ context.Context, img *article.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate != nil {
		return m.failCreate
	}
	m.seq++
	img.ID = m.seq
	img.CreatedAt = time.Now().UTC()
	m.store[img.ID] = *img
	return nil
}

func (m *MemoryImageRepo) Get(_ context.Context, id int64) (*article.Image, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	img, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &img, nil
}

func (m *MemoryImageRepo) ListByArticle(_ context.Context, articleID int64) ([]article.Image, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []article.Image{}
	for _, img := range m.store {
		if img.ArticleID == articleID {
			out = append(out, img)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryImageRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	return nil
}

// MemoryCommentRepo is an in-memory CommentRepository.
type MemoryCommentRepo struct {
	mu    sync.RWMutex
	seq   int64
	store map[int64]*article.Comment
}

func NewMemoryCommentRepo() *MemoryCommentRepo {
	return &MemoryCommentRepo{store: make(map[int64]*article.Comment)}
}

func (m *MemoryCommentRepo) Create(_ context.Context, c *article.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	c.ID = m.seq
	c.CreatedAt = time.Now().UTC()
	cp := *c
	m.store[c.ID] = &cp
	return nil
}

func (m *MemoryCommentRepo) Get(_ context.Context, id int64) (*article.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.store[id]
	if !ok || c.Deleted {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryCommentRepo) ListByArticle(_ context.Context, articleID int64) ([]*article.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*article.Comment{}
	for _, c := range m.store {
		if c.ArticleID == articleID && !c.Deleted {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryCommentRepo) Update(_ context.Context, c *article.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.store[c.ID]
	if !ok || cur.Deleted {
		return ErrNotFound
	}
	cur.Content = c.Content
	cur.Deleted = c.Deleted
	cur.DeletedAt = c.DeletedAt
	return nil
}
