package transfer

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estatehub/internal/assets"
	"estatehub/internal/category"
	"estatehub/internal/listing"
	"estatehub/pkg/database"
	"estatehub/pkg/models"
)

type env struct {
	listings *listing.Service
	blobs    *assets.BlobStore
	transfer *Service
}

func newEnv(t *testing.T) env {
	t.Helper()
	db, err := database.OpenMigrated(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return envOn(db)
}

func envOn(db *sql.DB) env {
	blobs := assets.NewBlobStore(db, 1280, 0.8)
	cats := category.NewService(category.NewSQLStore(db))
	ls := listing.NewService(listing.NewSQLStore(db), blobs, cats)
	return env{listings: ls, blobs: blobs, transfer: NewService(ls, cats, blobs)}
}

func price(f float64) *float64 { return &f }

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newEnv(t)

	require.NoError(t, src.blobs.Restore(ctx, "img_a", "image/jpeg", []byte{0xff, 0xd8, 1, 2, 3}))
	_, err := src.listings.ImportMerge(ctx, []models.Listing{{
		ID:              4,
		Title:           "Hill house",
		Description:     "view",
		Type:            "House",
		Price:           price(1200000),
		PriceUnit:       "THB",
		FacebookURL:     "https://facebook.com/p/4",
		Latitude:        price(18.8),
		Longitude:       price(98.9),
		ImageReferences: []models.ImageRef{{ID: "img_a"}},
	}})
	require.NoError(t, err)

	payload, err := src.transfer.Export(ctx)
	require.NoError(t, err)
	require.Len(t, payload.Items, 1)
	require.Contains(t, payload.Images, "img_a")

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	dst := newEnv(t)
	res, err := dst.transfer.Import(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, Result{Applied: 1, Images: 1}, res)

	got, err := dst.listings.Get(ctx, 4)
	require.NoError(t, err)
	require.NotNil(t, got)
	want := payload.Items[0]
	assert.Equal(t, want.Title, got.Title)
	assert.Equal(t, want.Description, got.Description)
	assert.Equal(t, want.Type, got.Type)
	assert.Equal(t, *want.Price, *got.Price)
	assert.Equal(t, want.PriceUnit, got.PriceUnit)
	assert.Equal(t, want.FacebookURL, got.FacebookURL)
	assert.Equal(t, *want.Latitude, *got.Latitude)
	assert.Equal(t, *want.Longitude, *got.Longitude)
	assert.Equal(t, want.ImageReferences, got.ImageReferences)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))

	blob, err := dst.blobs.Blob(ctx, "img_a")
	require.NoError(t, err)
	require.NotNil(t, blob)
	assert.Equal(t, []byte{0xff, 0xd8, 1, 2, 3}, blob.Data)
	assert.Equal(t, "image/jpeg", blob.ContentType)
}

func TestImportIsIdempotent(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	e.listings.Now = func() time.Time {
		clock = clock.Add(time.Hour)
		return clock
	}
	doc := []byte(`[{"id":1,"title":"a","price":10},{"id":2,"title":"b"}]`)

	_, err := e.transfer.Import(ctx, doc)
	require.NoError(t, err)
	first, err := e.listings.List(ctx)
	require.NoError(t, err)

	_, err = e.transfer.Import(ctx, doc)
	require.NoError(t, err)
	second, err := e.listings.List(ctx)
	require.NoError(t, err)

	require.Len(t, second, 2)
	assert.Equal(t, first, second)
}

func TestImportDuplicateIDs(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	res, err := e.transfer.Import(ctx, []byte(`{"items":[{"id":1,"title":"A"},{"id":1,"title":"B"}]}`))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Applied)

	a, err := e.listings.Get(ctx, 1)
	require.NoError(t, err)
	b, err := e.listings.Get(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Equal(t, "A", a.Title)
	assert.Equal(t, "B", b.Title)
}

func TestImportClampsImages(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	keys := make([]string, 13)
	for i := range keys {
		keys[i] = fmt.Sprintf("%q", fmt.Sprintf("img_%02d", i))
	}
	doc := `[{"id":1,"imageReferences":[` + strings.Join(keys, ",") + `]}]`

	_, err := e.transfer.Import(ctx, []byte(doc))
	require.NoError(t, err)

	got, err := e.listings.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.ImageReferences, models.MaxImages)
	assert.Equal(t, "img_11", got.ImageReferences[11].ID)
}

func TestImportInvalidJSONAppliesNothing(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	_, err := e.transfer.Import(ctx, []byte(`{"items":[{"id":1,"images":{"img_x":"data:,x"}`))
	require.ErrorIs(t, err, models.ErrValidation)

	all, err := e.listings.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	keys, err := e.blobs.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestImportSkipsBadImages(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	res, err := e.transfer.Import(ctx, []byte(`{"items":[],"images":{"ok":"data:image/png;base64,AAAA","bad":"not a data url","num":5}}`))
	require.NoError(t, err)
	assert.Equal(t, Result{Applied: 0, Images: 1}, res)
}

func TestHandlerImportExport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	e := newEnv(t)
	r := gin.New()
	NewHandler(e.transfer, nil).RegisterRoutes(r.Group("/admin"))

	req := httptest.NewRequest(http.MethodPost, "/admin/import", strings.NewReader(`[{"title":"a"}]`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"applied":1,"images":0}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/admin/import", strings.NewReader(`nope`))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/export", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

	var p Payload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	require.Len(t, p.Items, 1)
	assert.Equal(t, "a", p.Items[0].Title)
}
