package article

import "time"

// DeletedAtLayout formats Article.DeletedAt and Comment.DeletedAt.
const DeletedAtLayout = "2006-01-02 15:04:05"

// Article is a user-authored post. Deleted articles stay in storage but are
// invisible to every repository read.
type Article struct {
	ID        int64     `json:"id" bson:"_id"`
	Title     string    `json:"title" bson:"title"`
	Content   string    `json:"content" bson:"content"`
	Username  string    `json:"username" bson:"username"`
	Images    []Image   `json:"images" bson:"-"`
	Deleted   bool      `json:"-" bson:"deleted"`
	DeletedAt string    `json:"-" bson:"deletedAt,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Image is one uploaded file attached to an article. Seq is the sequence
// number baked into the file name.
type Image struct {
	ID        int64     `json:"id" bson:"_id"`
	ArticleID int64     `json:"articleId" bson:"articleId"`
	URL       string    `json:"url" bson:"url"`
	Seq       int       `json:"-" bson:"seq"`
	CreatedAt time.Time `json:"-" bson:"createdAt"`
}

// Comment follows the same soft-delete convention as Article.
type Comment struct {
	ID        int64     `json:"id" bson:"_id"`
	ArticleID int64     `json:"articleId" bson:"articleId"`
	Username  string    `json:"username" bson:"username"`
	Content   string    `json:"content" bson:"content"`
	Deleted   bool      `json:"-" bson:"deleted"`
	DeletedAt string    `json:"-" bson:"deletedAt,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// MaxSeq returns the highest image sequence number, 0 when there are none.
func (a *Article) MaxSeq() int {
	hi := 0
	for _, img := range a.Images {
		if img.Seq > hi {
			hi = img.Seq
		}
	}
	return hi
}

type ImageView struct {
	ID  int64  `json:"id"`
	URL string `json:"url"`
}

// ArticleView is the full projection returned by create, get and update.
type ArticleView struct {
	ID        int64       `json:"id"`
	Title     string      `json:"title"`
	Content   string      `json:"content"`
	Username  string      `json:"username"`
	Images    []ImageView `json:"images"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// ArticleSummary is the list projection; Thumbnail is the first image URL.
type ArticleSummary struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Username  string `json:"username"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Page is one 0-based page of results.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
}

func NewPage[T any](content []T, number, size int, total int64) Page[T] {
	pages := 0
	if size > 0 {
		pages = int((total + int64(size) - 1) / int64(size))
	}
	if content == nil {
		content = []T{}
	}
	return Page[T]{Content: content, Number: number, Size: size, TotalElements: total, TotalPages: pages}
}

func (a *Article) View() ArticleView {
	imgs := make([]ImageView, 0, len(a.Images))
	for _, img := range a.Images {
		imgs = append(imgs, ImageView{ID: img.ID, URL: img.URL})
	}
	return ArticleView{
		ID:        a.ID,
		Title:     a.Title,
		Content:   a.Content,
		Username:  a.Username,
		Images:    imgs,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func (a *Article) Summary() ArticleSummary {
	s := ArticleSummary{ID: a.ID, Title: a.Title, Username: a.Username}
	if len(a.Images) > 0 {
		s.Thumbnail = a.Images[0].URL
	}
	return s
}
