package assets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"estatehub/pkg/models"
)

// Blob is one row of the images table.
type Blob struct {
	Key         string    `db:"key"`
	ContentType string    `db:"content_type"`
	Data        []byte    `db:"data"`
	CreatedAt   time.Time `db:"created_at"`
}

// BlobStore keeps image bytes in the local SQLite database.
type BlobStore struct {
	DB        *sqlx.DB
	MaxEdge   int
	Quality   float64
	URLPrefix string
}

func NewBlobStore(db *sql.DB, maxEdge int, quality float64) *BlobStore {
	return &BlobStore{
		DB:        sqlx.NewDb(db, "sqlite3"),
		MaxEdge:   maxEdge,
		Quality:   quality,
		URLPrefix: "/images/",
	}
}

// Put compresses and stores files one after another in input order. A file
// that cannot be decoded as an image is stored as sent; a file whose write
// fails is skipped, logged, and reported in the returned error.
func (s *BlobStore) Put(ctx context.Context, files []Upload) ([]models.ImageRef, error) {
	refs := make([]models.ImageRef, 0, len(files))
	var errs []error

	for i, f := range files {
		data, contentType := f.Data, f.ContentType
		if packed, ct, err := Compress(f.Data, s.MaxEdge, s.Quality); err == nil {
			data, contentType = packed, ct
		} else {
			log.Printf("[assets] %s not compressed: %v", f.Name, err)
		}
		if contentType == "" {
			contentType = http.DetectContentType(data)
		}

		key := NewKey(i)
		if err := s.Restore(ctx, key, contentType, data); err != nil {
			log.Printf("[assets] store %s failed: %v", f.Name, err)
			errs = append(errs, fmt.Errorf("store %s: %w", f.Name, err))
			continue
		}
		refs = append(refs, models.ImageRef{ID: key})
	}

	return refs, errors.Join(errs...)
}

func (s *BlobStore) Resolve(ctx context.Context, ref models.ImageRef) (string, error) {
	if ref.ID == "" {
		return "", nil
	}
	ok, err := s.Has(ctx, ref.ID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return s.URLPrefix + ref.ID, nil
}

func (s *BlobStore) Delete(ctx context.Context, refs []models.ImageRef) error {
	var errs []error
	for _, ref := range refs {
		if ref.ID == "" {
			continue
		}
		if _, err := s.DB.ExecContext(ctx, `DELETE FROM images WHERE key = ?`, ref.ID); err != nil {
			errs = append(errs, fmt.Errorf("delete image %s: %w: %v", ref.ID, models.ErrTransient, err))
		}
	}
	return errors.Join(errs...)
}

func (s *BlobStore) Has(ctx context.Context, key string) (bool, error) {
	var n int
	if err := s.DB.GetContext(ctx, &n, `SELECT COUNT(*) FROM images WHERE key = ?`, key); err != nil {
		return false, fmt.Errorf("lookup image %s: %w: %v", key, models.ErrTransient, err)
	}
	return n > 0, nil
}

// Blob returns the stored image, or nil when the key is unknown.
func (s *BlobStore) Blob(ctx context.Context, key string) (*Blob, error) {
	var b Blob
	err := s.DB.GetContext(ctx, &b, `
		SELECT key, content_type, data, created_at
		FROM images
		WHERE key = ?
	`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get image %s: %w: %v", key, models.ErrTransient, err)
	}
	return &b, nil
}

// Restore writes bytes under a caller-chosen key without recompressing them.
func (s *BlobStore) Restore(ctx context.Context, key, contentType string, data []byte) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO images (key, content_type, data, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
		  content_type = excluded.content_type,
		  data = excluded.data
	`, key, contentType, data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("put image %s: %w: %v", key, models.ErrTransient, err)
	}
	return nil
}

// Keys lists every stored key, oldest first.
func (s *BlobStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := s.DB.SelectContext(ctx, &keys, `SELECT key FROM images ORDER BY created_at, key`); err != nil {
		return nil, fmt.Errorf("list images: %w: %v", models.ErrTransient, err)
	}
	return keys, nil
}

// Clear drops every stored image.
func (s *BlobStore) Clear(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM images`); err != nil {
		return fmt.Errorf("clear images: %w: %v", models.ErrTransient, err)
	}
	return nil
}
