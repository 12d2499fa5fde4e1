package listing

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"estatehub/internal/assets"
	"estatehub/internal/category"
	"estatehub/pkg/database"
	"estatehub/pkg/models"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenMigrated(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// fakeAssets hands out sequential ids and records what was released.
type fakeAssets struct {
	mu       sync.Mutex
	n        int
	puts     int
	putErr   error
	released []models.ImageRef
}

func (f *fakeAssets) Put(_ context.Context, files []assets.Upload) ([]models.ImageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts += len(files)
	if f.putErr != nil {
		return nil, f.putErr
	}
	refs := make([]models.ImageRef, 0, len(files))
	for range files {
		f.n++
		refs = append(refs, models.ImageRef{ID: fmt.Sprintf("f%d", f.n)})
	}
	return refs, nil
}

func (f *fakeAssets) Resolve(_ context.Context, ref models.ImageRef) (string, error) {
	return "https://cdn.test/" + ref.ID, nil
}

func (f *fakeAssets) Delete(_ context.Context, refs []models.ImageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, refs...)
	return nil
}

func (f *fakeAssets) releasedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.released))
	for _, r := range f.released {
		ids = append(ids, r.ID)
	}
	return ids
}

// stepClock returns a time one minute later on every call.
func stepClock() func() time.Time {
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Minute)
		return t
	}
}

func newTestService(t *testing.T, as assets.Store) *Service {
	t.Helper()
	db := openTestDB(t)
	svc := NewService(NewSQLStore(db), as, category.NewService(category.NewSQLStore(db)))
	svc.Now = stepClock()
	return svc
}

func refs(ids ...string) []models.ImageRef {
	out := make([]models.ImageRef, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.ImageRef{ID: id})
	}
	return out
}

func ptr(f float64) *float64 { return &f }
