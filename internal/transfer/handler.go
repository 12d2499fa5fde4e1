package transfer

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"estatehub/internal/sync"
	"estatehub/pkg/utils"
)

const maxImportBytes = 64 << 20

type Handler struct {
	Service *Service
	Hub     *sync.Hub
}

func NewHandler(svc *Service, hub *sync.Hub) *Handler {
	return &Handler{Service: svc, Hub: hub}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/export", h.exportPayload)  // GET /admin/export
	rg.POST("/import", h.importPayload) // POST /admin/import (JSON body or multipart "file")
}

func (h *Handler) exportPayload(c *gin.Context) {
	p, err := h.Service.Export(c.Request.Context())
	if err != nil {
		c.JSON(utils.StatusFor(err), gin.H{"error": err.Error()})
		return
	}

	name := fmt.Sprintf("listings-%s.json", p.ExportedAt.Format("20060102-150405"))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.JSON(http.StatusOK, p)
}

func (h *Handler) importPayload(c *gin.Context) {
	data, err := readImport(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.Service.Import(c.Request.Context(), data)
	if err != nil {
		c.JSON(utils.StatusFor(err), gin.H{"error": err.Error()})
		return
	}

	if h.Hub != nil {
		h.Hub.BroadcastJSON(sync.Event{
			Type:  sync.EventListingImport,
			Count: res.Applied,
			At:    time.Now().UTC(),
		})
	}
	c.JSON(http.StatusOK, res)
}

func readImport(c *gin.Context) ([]byte, error) {
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open upload: %w", err)
		}
		defer f.Close()
		return io.ReadAll(io.LimitReader(f, maxImportBytes))
	}
	return io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes))
}
