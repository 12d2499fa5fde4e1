package category

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estatehub/pkg/database"
	"estatehub/pkg/models"
)

func newTestService(t *testing.T) (*Service, *SQLStore) {
	t.Helper()
	db, err := database.OpenMigrated(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store := NewSQLStore(db)
	return NewService(store), store
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil falls back", nil, Defaults},
		{"blanks only fall back", []string{" ", ""}, Defaults},
		{"trim and dedupe", []string{" Villa ", "villa", "Land", "VILLA"}, []string{"Villa", "Land"}},
		{"order kept", []string{"b", "a"}, []string{"b", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}

	got := Normalize(nil)
	got[0] = "changed"
	assert.Equal(t, "House", Defaults[0], "defaults are copied")
}

func TestContains(t *testing.T) {
	assert.True(t, Contains([]string{"House", "Land"}, " land "))
	assert.False(t, Contains([]string{"House"}, "Condo"))
}

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	labels, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, Defaults, labels)

	labels, err = svc.Add(ctx, " Villa ")
	require.NoError(t, err)
	assert.Equal(t, "Villa", labels[len(labels)-1])

	labels, err = svc.Add(ctx, "villa")
	require.NoError(t, err)
	assert.Len(t, labels, len(Defaults)+1, "case-insensitive duplicate ignored")

	labels, err = svc.Remove(ctx, "HOUSE")
	require.NoError(t, err)
	assert.False(t, Contains(labels, "House"))

	def, err := svc.Default(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Land", def)

	_, err = svc.Remove(ctx, "Castle")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.Add(ctx, "  ")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestServiceKeepsOneLabel(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	labels, err := svc.Replace(ctx, []string{"Only", "", "only"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Only"}, labels)

	_, err = svc.Remove(ctx, "Only")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.Replace(ctx, []string{" "})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestSQLStoreCorruptSlot(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	_, err := store.DB.ExecContext(ctx, `INSERT INTO settings (key, value) VALUES (?, ?)`, settingsKey, "{broken")
	require.NoError(t, err)

	labels, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, Defaults, labels)
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _ := newTestService(t)
	h := NewHandler(svc, nil)

	r := gin.New()
	h.RegisterPublicRoutes(r.Group(""))
	h.RegisterAdminRoutes(r.Group("/admin"))

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodPost, "/admin/categories", `{"name":"Villa"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Villa")

	rec = do(http.MethodPut, "/admin/categories", `{"items":["Land","Farm"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":["Land","Farm"]}`, rec.Body.String())

	rec = do(http.MethodDelete, "/admin/categories/Farm", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusBadRequest, do(http.MethodDelete, "/admin/categories/Land", "").Code)
	assert.Equal(t, http.StatusNotFound, do(http.MethodDelete, "/admin/categories/Nope", "").Code)

	rec = do(http.MethodGet, "/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":["Land"]}`, rec.Body.String())
}
