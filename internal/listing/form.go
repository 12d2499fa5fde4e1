package listing

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"estatehub/internal/assets"
	"estatehub/pkg/models"
)

const maxFormMemory = 32 << 20

// listingJSON is the body accepted from API clients. Images are data URLs.
type listingJSON struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	Price       *float64 `json:"price"`
	PriceUnit   string   `json:"priceUnit"`
	FacebookURL string   `json:"facebookUrl"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Images      []string `json:"images"`
}

// submission is a parsed create or update request. Images are read lazily so
// files past the slot limit are never loaded.
type submission struct {
	Listing models.Listing
	files   []*multipart.FileHeader
	inline  []string
}

func readSubmission(c *gin.Context) (submission, error) {
	if strings.HasPrefix(c.ContentType(), "application/json") {
		var body listingJSON
		if err := c.ShouldBindJSON(&body); err != nil {
			return submission{}, fmt.Errorf("invalid body: %w", models.ErrValidation)
		}
		return submission{
			Listing: models.Listing{
				Title:       body.Title,
				Description: body.Description,
				Type:        body.Type,
				Price:       body.Price,
				PriceUnit:   body.PriceUnit,
				FacebookURL: body.FacebookURL,
				Latitude:    body.Latitude,
				Longitude:   body.Longitude,
			},
			inline: body.Images,
		}, nil
	}

	var sub submission
	if err := c.Request.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return sub, fmt.Errorf("invalid form: %w", models.ErrValidation)
	}

	sub.Listing = models.Listing{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Type:        c.PostForm("type"),
		PriceUnit:   c.PostForm("priceUnit"),
		FacebookURL: c.PostForm("facebookUrl"),
	}

	var err error
	if sub.Listing.Price, err = optionalFloat("price", c.PostForm("price")); err != nil {
		return sub, err
	}
	if sub.Listing.Latitude, err = optionalFloat("latitude", c.PostForm("latitude")); err != nil {
		return sub, err
	}
	if sub.Listing.Longitude, err = optionalFloat("longitude", c.PostForm("longitude")); err != nil {
		return sub, err
	}

	if form := c.Request.MultipartForm; form != nil {
		sub.files = form.File["images"]
	}
	return sub, nil
}

func (s submission) selected() int {
	return len(s.files) + len(s.inline)
}

// uploads loads at most limit images in the order they were selected.
// Unreadable files are logged and skipped.
func (s submission) uploads(limit int) []assets.Upload {
	out := make([]assets.Upload, 0, min(limit, s.selected()))

	for _, fh := range s.files {
		if len(out) >= limit {
			return out
		}
		data, err := readFile(fh)
		if err != nil {
			log.Printf("[listing] read upload %s: %v", fh.Filename, err)
			continue
		}
		out = append(out, assets.Upload{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	for i, raw := range s.inline {
		if len(out) >= limit {
			return out
		}
		ct, data, err := assets.DecodeDataURL(raw)
		if err != nil {
			log.Printf("[listing] decode inline image %d: %v", i, err)
			continue
		}
		out = append(out, assets.Upload{
			Name:        "image-" + strconv.Itoa(i+1),
			ContentType: ct,
			Data:        data,
		})
	}
	return out
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// optionalFloat treats blank as unset. Thousands separators are allowed.
func optionalFloat(field, raw string) (*float64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%s is not a number: %w", field, models.ErrValidation)
	}
	return &f, nil
}
