package listing

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"estatehub/internal/sync"
	"estatehub/pkg/models"
	"estatehub/pkg/utils"
)

// SubmissionHeader lets a client tag a create so a double submit is refused.
const SubmissionHeader = "X-Submission-Id"

func (h *Handler) adminList(c *gin.Context) {
	items, err := h.Service.List(c.Request.Context())
	if err != nil {
		c.JSON(utils.StatusFor(err), gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(items), "items": h.cards(c, items)})
}

func (h *Handler) create(c *gin.Context) {
	h.save(c, 0)
}

func (h *Handler) update(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	h.save(c, id)
}

// save stores images first and then the record. Image failures do not block
// the record; they come back as a warning.
func (h *Handler) save(c *gin.Context, id int64) {
	key := ""
	if id > 0 {
		key = "listing:" + strconv.FormatInt(id, 10)
	} else if sid := c.GetHeader(SubmissionHeader); sid != "" {
		key = "create:" + sid
	}
	release, ok := h.guard.acquire(key)
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "a save for this listing is already in progress"})
		return
	}
	defer release()

	ctx := c.Request.Context()

	sub, err := readSubmission(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var existing *models.Listing
	if id > 0 {
		existing, err = h.Service.Get(ctx, id)
		if err != nil {
			c.JSON(utils.StatusFor(err), gin.H{"error": err.Error()})
			return
		}
		if existing == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
	}

	slots := models.MaxImages
	if h.AppendOnEdit && existing != nil {
		slots -= len(existing.ImageReferences)
	}
	slots = max(slots, 0)

	var warnings []string
	if n := sub.selected(); n > slots {
		warnings = append(warnings, fmt.Sprintf("only %d of %d images were accepted (limit %d per listing)", slots, n, models.MaxImages))
	}

	policy := KeepExisting()
	if uploads := sub.uploads(slots); len(uploads) > 0 {
		refs, err := h.Service.Assets.Put(ctx, uploads)
		if err != nil {
			if errors.Is(err, models.ErrConfiguration) {
				c.JSON(utils.StatusFor(err), gin.H{"error": err.Error()})
				return
			}
			log.Printf("[listing] image upload for %d: %v", id, err)
			warnings = append(warnings, "some images were not saved: "+err.Error())
		}
		if len(refs) > 0 {
			if h.AppendOnEdit {
				policy = AppendWith(refs)
			} else {
				policy = ReplaceWith(refs)
			}
		}
	}

	in := sub.Listing
	in.ID = id
	saved, err := h.Service.Upsert(ctx, in, policy)
	if err != nil {
		c.JSON(utils.StatusFor(err), gin.H{"error": err.Error()})
		return
	}

	h.notify(sync.Event{Type: sync.EventListingUpsert, ListingID: saved.ID})

	resp := gin.H{
		"listing": saved,
		"gallery": h.Gallery.Resolve(ctx, saved.ImageReferences),
	}
	if len(warnings) > 0 {
		resp["warnings"] = warnings
	}

	status := http.StatusOK
	if existing == nil {
		status = http.StatusCreated
	}
	c.JSON(status, resp)
}

func (h *Handler) remove(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	deleted, err := h.Service.Delete(c.Request.Context(), id)
	if err != nil {
		c.JSON(utils.StatusFor(err), gin.H{"error": err.Error()})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	h.notify(sync.Event{Type: sync.EventListingDelete, ListingID: id})
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (h *Handler) removeImage(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	l, err := h.Service.RemoveImage(c.Request.Context(), id, c.Param("imageId"))
	if err != nil {
		c.JSON(utils.StatusFor(err), gin.H{"error": err.Error()})
		return
	}

	h.notify(sync.Event{Type: sync.EventListingUpsert, ListingID: id})
	c.JSON(http.StatusOK, gin.H{
		"listing": l,
		"gallery": h.Gallery.Resolve(c.Request.Context(), l.ImageReferences),
	})
}

func (h *Handler) reset(c *gin.Context) {
	n, err := h.Service.Reset(c.Request.Context())
	if err != nil {
		c.JSON(utils.StatusFor(err), gin.H{"error": err.Error()})
		return
	}

	h.notify(sync.Event{Type: sync.EventListingReset, Count: n})
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}
