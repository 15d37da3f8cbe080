package media

import (
	"fmt"
	"path"
	"strings"
)

// Layout decides where an article's images live and how they are named.
// Keys are slash-separated paths relative to the storage root; URLs are the
// same paths under /static with StaticRoot stripped.
type Layout struct {
	Name       string
	StaticRoot string
	dir        func(username string, articleID int64) string
	file       func(username string, seq int) string
}

var (
	// ArticleLayout: media/article/{id}/{user}_{n}.{ext}, served as /static/article/{id}/...
	ArticleLayout = Layout{
		Name:       "article",
		StaticRoot: "media",
		dir:        func(_ string, id int64) string { return fmt.Sprintf("media/article/%d", id) },
		file:       func(u string, n int) string { return fmt.Sprintf("%s_%d", u, n) },
	}
	// FeedLayout: article/{user}/{id}/{user}{n}.{ext}, served as /static/{user}/{id}/...
	FeedLayout = Layout{
		Name:       "feed",
		StaticRoot: "article",
		dir:        func(u string, id int64) string { return fmt.Sprintf("article/%s/%d", u, id) },
		file:       func(u string, n int) string { return fmt.Sprintf("%s%d", u, n) },
	}
)

// LayoutByName returns "article" or "feed".
func LayoutByName(name string) (Layout, error) {
	switch name {
	case ArticleLayout.Name:
		return ArticleLayout, nil
	case FeedLayout.Name:
		return FeedLayout, nil
	}
	return Layout{}, fmt.Errorf("unknown media layout %q", name)
}

// Dir is the per-article directory key.
func (l Layout) Dir(username string, articleID int64) string {
	return l.dir(username, articleID)
}

// FileName builds the stored name from the sequence number and the
// extension of the uploaded file's original name.
func (l Layout) FileName(username string, seq int, original string) string {
	name := l.file(username, seq)
	if ext := Extension(original); ext != "" {
		name += "." + ext
	}
	return name
}

func (l Layout) Key(username string, articleID int64, fileName string) string {
	return l.Dir(username, articleID) + "/" + fileName
}

func (l Layout) URL(key string) string {
	return "/static/" + strings.TrimPrefix(key, l.StaticRoot+"/")
}

// KeyFromURL recovers the storage key of an image from the last segment of
// its public URL.
func (l Layout) KeyFromURL(username string, articleID int64, url string) string {
	return l.Key(username, articleID, path.Base(url))
}

// Extension returns the text after the last dot of the base name, limited
// to ASCII letters and digits. "photo.PNG" -> "PNG", "noext" -> "".
func Extension(original string) string {
	base := path.Base(strings.ReplaceAll(original, "\\", "/"))
	i := strings.LastIndexByte(base, '.')
	if i < 0 {
		return ""
	}
	var b strings.Builder
	for _, r := range base[i+1:] {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
