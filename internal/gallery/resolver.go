// Package gallery turns a listing's image references into display URLs and
// tracks the lightbox position.
package gallery

import (
	"context"
	"log"

	"estatehub/internal/assets"
	"estatehub/pkg/models"
)

// Gallery is the resolved view of one listing's images. URLs has one entry
// per reference in the same order; a reference that could not be resolved
// keeps its slot as "". Empty is set only when there were no references.
type Gallery struct {
	URLs    []string `json:"urls"`
	Empty   bool     `json:"empty"`
	Missing int      `json:"missing"`
}

// Cover returns the first URL, or "" when there is none.
func (g Gallery) Cover() string {
	if len(g.URLs) == 0 {
		return ""
	}
	return g.URLs[0]
}

type Resolver struct {
	Assets assets.Store
}

func NewResolver(store assets.Store) *Resolver {
	return &Resolver{Assets: store}
}

// Resolve asks the asset store for every reference on each call. Local blob
// URLs are only valid for the current view, so nothing is cached here.
func (r *Resolver) Resolve(ctx context.Context, refs []models.ImageRef) Gallery {
	if len(refs) == 0 {
		return Gallery{URLs: []string{}, Empty: true}
	}

	g := Gallery{URLs: make([]string, len(refs))}
	for i, ref := range refs {
		url, err := r.Assets.Resolve(ctx, ref)
		if err != nil {
			log.Printf("[gallery] resolve %q: %v", ref.ID, err)
		}
		if url == "" {
			g.Missing++
		}
		g.URLs[i] = url
	}
	return g
}

// ResolveCover resolves only the first reference, for list cards and map
// markers.
func (r *Resolver) ResolveCover(ctx context.Context, refs []models.ImageRef) string {
	if len(refs) == 0 {
		return ""
	}
	url, err := r.Assets.Resolve(ctx, refs[0])
	if err != nil {
		log.Printf("[gallery] resolve cover %q: %v", refs[0].ID, err)
		return ""
	}
	return url
}
