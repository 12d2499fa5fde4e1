package category

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"estatehub/internal/sync"
	"estatehub/pkg/utils"
)

type Handler struct {
	Service *Service
	Hub     *sync.Hub
}

func NewHandler(svc *Service, hub *sync.Hub) *Handler {
	return &Handler{Service: svc, Hub: hub}
}

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/categories", h.list)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/categories", h.add)
	rg.PUT("/categories", h.replace)
	rg.DELETE("/categories/:name", h.remove)
}

type addReq struct {
	Name string `json:"name"`
}

type replaceReq struct {
	Items []string `json:"items"`
}

func (h *Handler) list(c *gin.Context) {
	labels, err := h.Service.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list categories failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": labels})
}

func (h *Handler) add(c *gin.Context) {
	var req addReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	labels, err := h.Service.Add(c.Request.Context(), req.Name)
	h.respond(c, labels, err)
}

func (h *Handler) replace(c *gin.Context) {
	var req replaceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	labels, err := h.Service.Replace(c.Request.Context(), req.Items)
	h.respond(c, labels, err)
}

func (h *Handler) remove(c *gin.Context) {
	labels, err := h.Service.Remove(c.Request.Context(), c.Param("name"))
	h.respond(c, labels, err)
}

func (h *Handler) respond(c *gin.Context, labels []string, err error) {
	if err != nil {
		c.JSON(utils.StatusFor(err), gin.H{"error": err.Error()})
		return
	}

	if h.Hub != nil {
		ev := sync.Event{
			Type:       sync.EventCategoryUpdate,
			Categories: labels,
			At:         time.Now().UTC(),
		}
		h.Hub.BroadcastJSON(ev)
	}

	c.JSON(http.StatusOK, gin.H{"items": labels})
}
