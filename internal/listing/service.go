package listing

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"estatehub/internal/assets"
	"estatehub/internal/category"
	"estatehub/internal/normalize"
	"estatehub/pkg/models"
)

type policyKind int

const (
	keepExisting policyKind = iota
	replaceWith
	appendWith
)

// ImagePolicy says what an upsert does with the record's image references.
type ImagePolicy struct {
	kind policyKind
	refs []models.ImageRef
}

// KeepExisting leaves stored references untouched. For a new record the
// references on the record itself are used.
func KeepExisting() ImagePolicy { return ImagePolicy{kind: keepExisting} }

// ReplaceWith swaps the whole list; references no longer used are released.
func ReplaceWith(refs []models.ImageRef) ImagePolicy {
	return ImagePolicy{kind: replaceWith, refs: refs}
}

// AppendWith adds refs after the existing ones, up to the image cap.
func AppendWith(refs []models.ImageRef) ImagePolicy {
	return ImagePolicy{kind: appendWith, refs: refs}
}

// Service is the listing repository. Every read-modify-write runs under one
// mutex so concurrent saves cannot interleave.
type Service struct {
	Store      Store
	Assets     assets.Store
	Categories *category.Service
	Now        func() time.Time

	mu sync.Mutex
}

func NewService(store Store, as assets.Store, cats *category.Service) *Service {
	return &Service{Store: store, Assets: as, Categories: cats, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// List returns every listing, newest first.
func (s *Service) List(ctx context.Context) ([]models.Listing, error) {
	items, err := s.Store.All(ctx)
	if err != nil {
		return nil, err
	}
	sortNewest(items)
	return items, nil
}

// Get returns (nil, nil) for an unknown id.
func (s *Service) Get(ctx context.Context, id int64) (*models.Listing, error) {
	return s.Store.Get(ctx, id)
}

// Upsert replaces the stored record with the same id. A listing whose id is
// not positive gets the next free id; an unmatched positive id is created
// under that id.
func (s *Service) Upsert(ctx context.Context, l models.Listing, policy ImagePolicy) (models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.prepare(ctx, &l); err != nil {
		s.release(ctx, policy.refs, "rejected upload")
		return models.Listing{}, err
	}

	var existing *models.Listing
	if l.ID > 0 {
		cur, err := s.Store.Get(ctx, l.ID)
		if err != nil {
			s.release(ctx, policy.refs, "rejected upload")
			return models.Listing{}, err
		}
		existing = cur
	} else {
		all, err := s.Store.All(ctx)
		if err != nil {
			s.release(ctx, policy.refs, "rejected upload")
			return models.Listing{}, err
		}
		l.ID = normalize.NextID(all)
	}

	var stored []models.ImageRef
	if existing != nil {
		stored = existing.ImageReferences
	}
	base := stored
	if existing == nil {
		base = l.ImageReferences
	}

	var dropped []models.ImageRef
	switch policy.kind {
	case replaceWith:
		l.ImageReferences = models.ClampImages(policy.refs)
		dropped = append(unused(stored, l.ImageReferences), unused(policy.refs, l.ImageReferences)...)
	case appendWith:
		merged := append(append([]models.ImageRef{}, base...), policy.refs...)
		l.ImageReferences = models.ClampImages(merged)
		dropped = unused(policy.refs, l.ImageReferences)
	default:
		l.ImageReferences = models.ClampImages(base)
	}
	if l.ImageReferences == nil {
		l.ImageReferences = []models.ImageRef{}
	}

	now := s.now()
	l.UpdatedAt = now
	if existing != nil {
		l.CreatedAt = existing.CreatedAt
	} else {
		l.CreatedAt = now
	}

	if err := s.Store.Save(ctx, l); err != nil {
		s.release(ctx, unused(policy.refs, stored), "unsaved upload")
		return models.Listing{}, err
	}

	s.release(ctx, dropped, fmt.Sprintf("listing %d replaced images", l.ID))
	return l, nil
}

// prepare validates the editable fields and fills in the default type.
func (s *Service) prepare(ctx context.Context, l *models.Listing) error {
	l.Title = strings.TrimSpace(l.Title)
	l.Description = strings.TrimSpace(l.Description)
	l.Type = strings.TrimSpace(l.Type)
	l.PriceUnit = strings.TrimSpace(l.PriceUnit)
	l.FacebookURL = strings.TrimSpace(l.FacebookURL)

	if l.Price != nil && *l.Price < 0 {
		return fmt.Errorf("price must not be negative: %w", models.ErrValidation)
	}
	if (l.Latitude == nil) != (l.Longitude == nil) {
		return fmt.Errorf("latitude and longitude go together: %w", models.ErrValidation)
	}
	if l.Latitude != nil && (*l.Latitude < -90 || *l.Latitude > 90 || *l.Longitude < -180 || *l.Longitude > 180) {
		return fmt.Errorf("coordinates out of range: %w", models.ErrValidation)
	}

	if s.Categories == nil {
		return nil
	}
	labels, err := s.Categories.List(ctx)
	if err != nil {
		return err
	}
	if l.Type == "" {
		l.Type = labels[0]
		return nil
	}
	if !category.Contains(labels, l.Type) {
		return fmt.Errorf("unknown type %q: %w", l.Type, models.ErrValidation)
	}
	return nil
}

// Delete removes the listing and then asks the asset store to drop its
// images. Asset failures are logged only. Reports false for an unknown id.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.Store.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if cur == nil {
		return false, nil
	}

	ok, err := s.Store.Remove(ctx, id)
	if err != nil || !ok {
		return ok, err
	}

	s.release(ctx, cur.ImageReferences, fmt.Sprintf("deleted listing %d", id))
	return true, nil
}

// RemoveImage drops one image from a listing, matched by id.
func (s *Service) RemoveImage(ctx context.Context, id int64, imageID string) (models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.Store.Get(ctx, id)
	if err != nil {
		return models.Listing{}, err
	}
	if cur == nil {
		return models.Listing{}, fmt.Errorf("listing %d: %w", id, models.ErrNotFound)
	}

	kept := make([]models.ImageRef, 0, len(cur.ImageReferences))
	var removed []models.ImageRef
	for _, ref := range cur.ImageReferences {
		if ref.ID == imageID && imageID != "" {
			removed = append(removed, ref)
			continue
		}
		kept = append(kept, ref)
	}
	if len(removed) == 0 {
		return models.Listing{}, fmt.Errorf("image %q on listing %d: %w", imageID, id, models.ErrNotFound)
	}

	cur.ImageReferences = kept
	cur.UpdatedAt = s.now()
	if err := s.Store.Save(ctx, *cur); err != nil {
		return models.Listing{}, err
	}

	s.release(ctx, removed, fmt.Sprintf("listing %d image removal", id))
	return *cur, nil
}

// ImportMerge writes items over the collection by id: matching records are
// replaced, the rest added, nothing else touched. Items must already carry
// unique positive ids. Images held only by overwritten records are released.
func (s *Service) ImportMerge(ctx context.Context, items []models.Listing) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(items) == 0 {
		return 0, nil
	}

	current, err := s.Store.All(ctx)
	if err != nil {
		return 0, err
	}
	byID := make(map[int64]models.Listing, len(current))
	for _, l := range current {
		byID[l.ID] = l
	}

	var defaultType string
	if s.Categories != nil {
		if d, err := s.Categories.Default(ctx); err == nil {
			defaultType = d
		}
	}

	now := s.now()
	var overwritten []models.ImageRef
	for i := range items {
		it := &items[i]
		if it.Type == "" {
			it.Type = defaultType
		}
		it.ImageReferences = models.ClampImages(it.ImageReferences)
		if it.ImageReferences == nil {
			it.ImageReferences = []models.ImageRef{}
		}
		if old, ok := byID[it.ID]; ok {
			overwritten = append(overwritten, old.ImageReferences...)
			if it.CreatedAt.IsZero() {
				it.CreatedAt = old.CreatedAt
			}
			if it.UpdatedAt.IsZero() && sameContent(*it, old) {
				it.UpdatedAt = old.UpdatedAt
			}
		}
		if it.CreatedAt.IsZero() {
			it.CreatedAt = now
		}
		if it.UpdatedAt.IsZero() {
			it.UpdatedAt = now
		}
		byID[it.ID] = *it
	}

	if err := s.Store.SaveMany(ctx, items); err != nil {
		return 0, err
	}

	var live []models.ImageRef
	for _, l := range byID {
		live = append(live, l.ImageReferences...)
	}
	s.release(ctx, unused(overwritten, live), "import overwrite")

	return len(items), nil
}

// sameContent compares everything but UpdatedAt.
func sameContent(a, b models.Listing) bool {
	return a.ID == b.ID &&
		a.Title == b.Title &&
		a.Description == b.Description &&
		a.Type == b.Type &&
		sameFloat(a.Price, b.Price) &&
		a.PriceUnit == b.PriceUnit &&
		a.FacebookURL == b.FacebookURL &&
		sameFloat(a.Latitude, b.Latitude) &&
		sameFloat(a.Longitude, b.Longitude) &&
		slices.Equal(a.ImageReferences, b.ImageReferences) &&
		a.CreatedAt.Equal(b.CreatedAt)
}

func sameFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Reset empties the catalog and every image it references.
func (s *Service) Reset(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Store.All(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.Store.Clear(ctx); err != nil {
		return 0, err
	}

	if c, ok := s.Assets.(clearer); ok {
		if err := c.Clear(ctx); err != nil {
			log.Printf("[listing] clear images failed: %v", err)
		}
	} else {
		var refs []models.ImageRef
		for _, l := range current {
			refs = append(refs, l.ImageReferences...)
		}
		s.release(ctx, refs, "reset")
	}
	return len(current), nil
}

type clearer interface {
	Clear(ctx context.Context) error
}

// release is best effort: the record change already happened.
func (s *Service) release(ctx context.Context, refs []models.ImageRef, why string) {
	if len(refs) == 0 || s.Assets == nil {
		return
	}
	if err := s.Assets.Delete(ctx, refs); err != nil {
		log.Printf("[listing] release %d image(s) after %s: %v", len(refs), why, err)
	}
}

// unused returns the refs in from that are not present in keep.
func unused(from, keep []models.ImageRef) []models.ImageRef {
	if len(from) == 0 {
		return nil
	}
	held := make(map[models.ImageRef]struct{}, len(keep))
	for _, r := range keep {
		held[r] = struct{}{}
	}
	var out []models.ImageRef
	for _, r := range from {
		if _, ok := held[r]; !ok {
			out = append(out, r)
			held[r] = struct{}{}
		}
	}
	return out
}

func sortNewest(items []models.Listing) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID > items[j].ID
	})
}
