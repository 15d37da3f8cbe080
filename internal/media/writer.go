package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/mutsasns/mutsasns/backend/go-services/internal/storage"
	"github.com/mutsasns/mutsasns/backend/go-services/pkg/metrics"
)

// Upload is one file received from a client.
type Upload struct {
	Filename    string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// FromFileHeader adapts a multipart file part.
func FromFileHeader(fh *multipart.FileHeader) Upload {
	return Upload{
		Filename:    fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// FromBytes wraps an in-memory payload.
func FromBytes(filename string, b []byte) Upload {
	return Upload{
		Filename: filename,
		Size:     int64(len(b)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(b)), nil
		},
	}
}

// Stored describes a written image.
type Stored struct {
	Key      string
	URL      string
	FileName string
}

// Writer puts uploads into a storage backend following a Layout.
type Writer struct {
	layout  Layout
	backend storage.Backend
}

func NewWriter(layout Layout, backend storage.Backend) *Writer {
	return &Writer{layout: layout, backend: backend}
}

// Write stores up as image number seq of the article.
func (w *Writer) Write(ctx context.Context, username string, articleID int64, seq int, up Upload) (Stored, error) {
	name := w.layout.FileName(username, seq, up.Filename)
	key := w.layout.Key(username, articleID, name)
	rc, err := up.Open()
	if err != nil {
		return Stored{}, fmt.Errorf("open upload %q: %w", up.Filename, err)
	}
	defer rc.Close()
	if err := w.backend.Put(ctx, key, rc, up.Size, up.ContentType); err != nil {
		return Stored{}, fmt.Errorf("store %s: %w", key, err)
	}
	metrics.ImageFiles.WithLabelValues(w.backend.Name(), "write").Inc()
	if up.Size > 0 {
		metrics.ImageBytesWritten.WithLabelValues(w.backend.Name()).Add(float64(up.Size))
	}
	return Stored{Key: key, URL: w.layout.URL(key), FileName: name}, nil
}

// Remove deletes the file behind an image URL.
func (w *Writer) Remove(ctx context.Context, username string, articleID int64, url string) error {
	key := w.layout.KeyFromURL(username, articleID, url)
	if err := w.backend.Delete(ctx, key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	metrics.ImageFiles.WithLabelValues(w.backend.Name(), "remove").Inc()
	return nil
}

// RemoveKey deletes a file by key; used to undo a Write.
func (w *Writer) RemoveKey(ctx context.Context, key string) error {
	return w.backend.Delete(ctx, key)
}
