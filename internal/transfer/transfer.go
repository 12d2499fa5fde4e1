// Package transfer moves the whole catalog in and out as one JSON document.
package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"estatehub/internal/assets"
	"estatehub/internal/category"
	"estatehub/internal/listing"
	"estatehub/internal/normalize"
	"estatehub/pkg/models"
)

// Payload is the export document. Images maps local image keys to data URLs
// and is empty when images live on a remote service.
type Payload struct {
	Items      []models.Listing  `json:"items"`
	Images     map[string]string `json:"images,omitempty"`
	ExportedAt time.Time         `json:"exportedAt"`
}

type Result struct {
	Applied int `json:"applied"`
	Images  int `json:"images"`
}

type Service struct {
	Listings   *listing.Service
	Categories *category.Service
	// Archive is set for the local backend only.
	Archive assets.Archive
	Now     func() time.Time
}

func NewService(listings *listing.Service, cats *category.Service, archive assets.Archive) *Service {
	return &Service{Listings: listings, Categories: cats, Archive: archive, Now: time.Now}
}

// Export snapshots every listing plus the bytes of every local image they
// reference. A missing blob is left out; its reference stays in the item.
func (s *Service) Export(ctx context.Context) (Payload, error) {
	items, err := s.Listings.List(ctx)
	if err != nil {
		return Payload{}, fmt.Errorf("export listings: %w", err)
	}

	p := Payload{Items: items, ExportedAt: s.now()}
	if s.Archive == nil {
		return p, nil
	}

	p.Images = make(map[string]string)
	for _, l := range items {
		for _, ref := range l.ImageReferences {
			if ref.ID == "" || p.Images[ref.ID] != "" {
				continue
			}
			b, err := s.Archive.Blob(ctx, ref.ID)
			if err != nil {
				return Payload{}, fmt.Errorf("export image %s: %w", ref.ID, err)
			}
			if b == nil {
				log.Printf("[transfer] listing %d references missing image %s", l.ID, ref.ID)
				continue
			}
			p.Images[ref.ID] = assets.EncodeDataURL(b.ContentType, b.Data)
		}
	}
	return p, nil
}

// Import accepts a bare array of listings or a Payload. Invalid JSON is
// rejected before anything is written. Images are restored first so the
// merged records never point at keys that are not there yet.
func (s *Service) Import(ctx context.Context, data []byte) (Result, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Result{}, fmt.Errorf("import: invalid JSON: %w", models.ErrValidation)
	}

	var res Result
	if doc, ok := raw.(map[string]any); ok {
		if images, ok := doc["images"].(map[string]any); ok && len(images) > 0 {
			res.Images = s.restore(ctx, images)
		}
	}

	var labels []string
	if s.Categories != nil {
		var err error
		if labels, err = s.Categories.List(ctx); err != nil {
			return res, err
		}
	}

	items := normalize.AssignIDs(normalize.Normalize(raw, labels))
	n, err := s.Listings.ImportMerge(ctx, items)
	if err != nil {
		return res, fmt.Errorf("import merge: %w", err)
	}
	res.Applied = n
	return res, nil
}

func (s *Service) restore(ctx context.Context, images map[string]any) int {
	if s.Archive == nil {
		log.Printf("[transfer] %d embedded image(s) ignored: no local image store", len(images))
		return 0
	}

	restored := 0
	for key, v := range images {
		raw, _ := v.(string)
		ct, data, err := assets.DecodeDataURL(raw)
		if err != nil || key == "" {
			log.Printf("[transfer] skip image %q: %v", key, err)
			continue
		}
		if err := s.Archive.Restore(ctx, key, ct, data); err != nil {
			log.Printf("[transfer] restore image %s: %v", key, err)
			continue
		}
		restored++
	}
	return restored
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}
