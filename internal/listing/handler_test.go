package listing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estatehub/internal/assets"
	"estatehub/internal/category"
	"estatehub/internal/gallery"
	"estatehub/pkg/models"
)

type saveResp struct {
	Listing  models.Listing  `json:"listing"`
	Gallery  gallery.Gallery `json:"gallery"`
	Warnings []string        `json:"warnings"`
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(h *Handler) *gin.Engine {
	r := gin.New()
	h.RegisterPublicRoutes(r.Group(""))
	h.RegisterAdminRoutes(r.Group("/admin"))
	return r
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := 0; i < 8; i++ {
		img.Set(i, i, color.RGBA{255, 0, 0, 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, method, path string, fields map[string]string, files [][]byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for i, data := range files {
		part, err := w.CreateFormFile("images", fmt.Sprintf("photo-%d.png", i+1))
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestCreateWithLocalImagesAndBrowse(t *testing.T) {
	db := openTestDB(t)
	blobs := assets.NewBlobStore(db, 1280, 0.8)
	svc := NewService(NewSQLStore(db), blobs, category.NewService(category.NewSQLStore(db)))
	h := NewHandler(svc, nil)
	require.NotNil(t, h.Blobs)
	r := newRouter(h)

	img := pngBytes(t)
	rec := serve(r, multipartRequest(t, http.MethodPost, "/admin/listings", map[string]string{
		"title": "Rice field",
		"type":  "Land",
		"price": "1,500,000",
	}, [][]byte{img, img}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	saved := decode[saveResp](t, rec)
	assert.Equal(t, int64(1), saved.Listing.ID)
	require.NotNil(t, saved.Listing.Price)
	assert.Equal(t, 1500000.0, *saved.Listing.Price)
	require.Len(t, saved.Gallery.URLs, 2)
	assert.True(t, strings.HasPrefix(saved.Gallery.URLs[0], "/images/img_"))
	assert.Empty(t, saved.Warnings)

	rec = serve(r, httptest.NewRequest(http.MethodGet, saved.Gallery.URLs[0], nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/listings?type=Land", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[struct {
		Total int `json:"total"`
		Items []struct {
			ID        int64  `json:"id"`
			Cover     string `json:"cover"`
			HasImages bool   `json:"hasImages"`
		} `json:"items"`
	}](t, rec)
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, saved.Gallery.URLs[0], page.Items[0].Cover)
	assert.True(t, page.Items[0].HasImages)

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/listings/1/gallery?index=0&step=-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[struct {
		Index int    `json:"index"`
		Total int    `json:"total"`
		URL   string `json:"url"`
	}](t, rec)
	assert.Equal(t, 1, view.Index, "stepping back from the first image wraps to the last")
	assert.Equal(t, 2, view.Total)
	assert.Equal(t, saved.Gallery.URLs[1], view.URL)

	rec = serve(r, httptest.NewRequest(http.MethodDelete, "/admin/listings/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	keys, err := blobs.Keys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys, "deleting the listing deletes its images")
}

func TestCreateClampsUploadsToLimit(t *testing.T) {
	as := &fakeAssets{}
	r := newRouter(NewHandler(newTestService(t, as), nil))

	files := make([][]byte, 13)
	for i := range files {
		files[i] = []byte{byte(i)}
	}
	rec := serve(r, multipartRequest(t, http.MethodPost, "/admin/listings", map[string]string{"title": "big"}, files))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	saved := decode[saveResp](t, rec)
	assert.Len(t, saved.Listing.ImageReferences, models.MaxImages)
	assert.Equal(t, models.MaxImages, as.puts, "the 13th file is never uploaded")
	assert.NotEmpty(t, saved.Warnings)
}

func TestEditAppendsWhenConfigured(t *testing.T) {
	as := &fakeAssets{}
	h := NewHandler(newTestService(t, as), nil)
	h.AppendOnEdit = true
	r := newRouter(h)

	rec := serve(r, multipartRequest(t, http.MethodPost, "/admin/listings", map[string]string{"title": "a"}, make([][]byte, 11)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve(r, multipartRequest(t, http.MethodPut, "/admin/listings/1", map[string]string{"title": "a"}, make([][]byte, 3)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	saved := decode[saveResp](t, rec)
	assert.Len(t, saved.Listing.ImageReferences, models.MaxImages)
	assert.Equal(t, "f1", saved.Listing.ImageReferences[0].ID)
	assert.Equal(t, "f12", saved.Listing.ImageReferences[11].ID)
	assert.Equal(t, 12, as.puts)
}

func TestSaveImageFailures(t *testing.T) {
	t.Run("transient keeps the record", func(t *testing.T) {
		as := &fakeAssets{putErr: fmt.Errorf("upload: %w", models.ErrTransient)}
		r := newRouter(NewHandler(newTestService(t, as), nil))

		rec := serve(r, multipartRequest(t, http.MethodPost, "/admin/listings", map[string]string{"title": "a"}, [][]byte{{1}}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		saved := decode[saveResp](t, rec)
		assert.Empty(t, saved.Listing.ImageReferences)
		assert.NotEmpty(t, saved.Warnings)
	})

	t.Run("configuration fails fast", func(t *testing.T) {
		as := &fakeAssets{putErr: fmt.Errorf("no endpoint: %w", models.ErrConfiguration)}
		svc := newTestService(t, as)
		r := newRouter(NewHandler(svc, nil))

		rec := serve(r, multipartRequest(t, http.MethodPost, "/admin/listings", map[string]string{"title": "a"}, [][]byte{{1}}))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)

		all, err := svc.List(context.Background())
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

func TestCreateFromJSON(t *testing.T) {
	as := &fakeAssets{}
	r := newRouter(NewHandler(newTestService(t, as), nil))

	body := `{"title":"Condo","type":"Condo","price":2500000,"latitude":13.7,"longitude":100.5,
		"images":["data:image/png;base64,iVBORw0KGgo=","not a data url"]}`
	req := httptest.NewRequest(http.MethodPost, "/admin/listings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := serve(r, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	saved := decode[saveResp](t, rec)
	assert.Equal(t, "Condo", saved.Listing.Type)
	assert.True(t, saved.Listing.HasLocation())
	assert.Equal(t, 1, as.puts, "undecodable inline image is skipped")
}

func TestHandlerErrors(t *testing.T) {
	r := newRouter(NewHandler(newTestService(t, &fakeAssets{}), nil))

	tests := []struct {
		name string
		req  *http.Request
		want int
	}{
		{"detail unknown", httptest.NewRequest(http.MethodGet, "/listings/9", nil), http.StatusNotFound},
		{"detail bad id", httptest.NewRequest(http.MethodGet, "/listings/abc", nil), http.StatusBadRequest},
		{"bad sort", httptest.NewRequest(http.MethodGet, "/listings?sort=random", nil), http.StatusBadRequest},
		{"update unknown", multipartRequest(t, http.MethodPut, "/admin/listings/9", map[string]string{"title": "x"}, nil), http.StatusNotFound},
		{"delete unknown", httptest.NewRequest(http.MethodDelete, "/admin/listings/9", nil), http.StatusNotFound},
		{"bad price", multipartRequest(t, http.MethodPost, "/admin/listings", map[string]string{"price": "lots"}, nil), http.StatusBadRequest},
		{"negative price", multipartRequest(t, http.MethodPost, "/admin/listings", map[string]string{"price": "-1"}, nil), http.StatusBadRequest},
		{"unknown type", multipartRequest(t, http.MethodPost, "/admin/listings", map[string]string{"type": "Castle"}, nil), http.StatusBadRequest},
		{"image without blob store", httptest.NewRequest(http.MethodGet, "/images/img_x", nil), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, serve(r, tt.req).Code)
		})
	}
}

func TestConcurrentSubmitIsRejected(t *testing.T) {
	h := NewHandler(newTestService(t, &fakeAssets{}), nil)
	r := newRouter(h)

	release, ok := h.guard.acquire("create:abc")
	require.True(t, ok)
	defer release()

	req := multipartRequest(t, http.MethodPost, "/admin/listings", map[string]string{"title": "a"}, nil)
	req.Header.Set(SubmissionHeader, "abc")
	assert.Equal(t, http.StatusConflict, serve(r, req).Code)
}
