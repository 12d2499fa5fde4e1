package listing

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"estatehub/internal/assets"
	"estatehub/internal/gallery"
	"estatehub/internal/sync"
	"estatehub/pkg/models"
	"estatehub/pkg/utils"
)

type Handler struct {
	Service *Service
	Gallery *gallery.Resolver
	Hub     *sync.Hub

	// Blobs serves /images/:key; nil when images live elsewhere.
	Blobs *assets.BlobStore
	// AppendOnEdit adds uploads after the existing images instead of
	// replacing them.
	AppendOnEdit bool

	guard submitGuard
}

func NewHandler(svc *Service, hub *sync.Hub) *Handler {
	h := &Handler{
		Service: svc,
		Gallery: gallery.NewResolver(svc.Assets),
		Hub:     hub,
	}
	switch s := svc.Assets.(type) {
	case *assets.BlobStore:
		h.Blobs = s
	case *assets.RemoteStore:
		h.AppendOnEdit = true
	}
	return h
}

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/listings", h.list)               // GET /listings
	rg.GET("/listings/:id", h.detail)         // GET /listings/:id
	rg.GET("/listings/:id/gallery", h.viewer) // GET /listings/:id/gallery?index=&step=
	rg.GET("/images/:key", h.image)           // GET /images/:key
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/listings", h.adminList)
	rg.POST("/listings", h.create)
	rg.PUT("/listings/:id", h.update)
	rg.DELETE("/listings/:id", h.remove)
	rg.DELETE("/listings/:id/images/:imageId", h.removeImage)
	rg.POST("/reset", h.reset)
}

// card is the list view of a listing: the record plus its resolved cover.
type card struct {
	models.Listing
	Cover     string `json:"cover"`
	HasImages bool   `json:"hasImages"`
}

func (h *Handler) cards(c *gin.Context, items []models.Listing) []card {
	out := make([]card, 0, len(items))
	for _, l := range items {
		out = append(out, card{
			Listing:   l,
			Cover:     h.Gallery.ResolveCover(c.Request.Context(), l.ImageReferences),
			HasImages: len(l.ImageReferences) > 0,
		})
	}
	return out
}

func (h *Handler) list(c *gin.Context) {
	q, err := ParseQuery(c.Query)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	all, err := h.Service.List(c.Request.Context())
	if err != nil {
		c.JSON(utils.StatusFor(err), gin.H{"error": "list failed"})
		return
	}

	matched := Apply(all, q)
	page := Page(matched, q.Limit, q.Offset)

	c.JSON(http.StatusOK, gin.H{
		"total":  len(matched),
		"limit":  q.Limit,
		"offset": q.Offset,
		"items":  h.cards(c, page),
	})
}

func (h *Handler) detail(c *gin.Context) {
	l, ok := h.load(c)
	if !ok {
		return
	}
	g := h.Gallery.Resolve(c.Request.Context(), l.ImageReferences)
	c.JSON(http.StatusOK, gin.H{"listing": l, "gallery": g})
}

// viewer moves a lightbox cursor over the listing's gallery. The position
// wraps in both directions.
func (h *Handler) viewer(c *gin.Context) {
	l, ok := h.load(c)
	if !ok {
		return
	}
	g := h.Gallery.Resolve(c.Request.Context(), l.ImageReferences)

	cur := gallery.NewCursor(len(g.URLs))
	cur.Select(parseInt(c.Query("index"), 0))
	cur.Step(parseInt(c.Query("step"), 0))

	url := ""
	if cur.Len() > 0 {
		url = g.URLs[cur.Index()]
	}
	c.JSON(http.StatusOK, gin.H{
		"index": cur.Index(),
		"total": cur.Len(),
		"url":   url,
		"empty": g.Empty,
	})
}

func (h *Handler) image(c *gin.Context) {
	if h.Blobs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	b, err := h.Blobs.Blob(c.Request.Context(), c.Param("key"))
	if err != nil {
		c.JSON(utils.StatusFor(err), gin.H{"error": "image lookup failed"})
		return
	}
	if b == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, b.ContentType, b.Data)
}

func (h *Handler) load(c *gin.Context) (*models.Listing, bool) {
	id, ok := paramID(c)
	if !ok {
		return nil, false
	}
	l, err := h.Service.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(utils.StatusFor(err), gin.H{"error": "get failed"})
		return nil, false
	}
	if l == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return nil, false
	}
	return l, true
}

func (h *Handler) notify(ev sync.Event) {
	if h.Hub == nil {
		return
	}
	ev.At = time.Now().UTC()
	h.Hub.BroadcastJSON(ev)
}

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func parseInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
