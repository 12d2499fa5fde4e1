package category

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"estatehub/pkg/models"
)

// Service applies the set rules on top of a Store: deduplicated, order
// preserving, never empty.
type Service struct {
	Store Store

	mu sync.Mutex
}

func NewService(store Store) *Service {
	return &Service{Store: store}
}

// List returns the current set; an empty store yields the defaults.
func (s *Service) List(ctx context.Context) ([]string, error) {
	labels, err := s.Store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return Normalize(labels), nil
}

// Default is the label new listings get when they carry none.
func (s *Service) Default(ctx context.Context) (string, error) {
	labels, err := s.List(ctx)
	if err != nil {
		return "", err
	}
	return labels[0], nil
}

// Add appends label unless it is already present.
func (s *Service) Add(ctx context.Context, label string) ([]string, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, fmt.Errorf("category name required: %w", models.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	labels, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if Contains(labels, label) {
		return labels, nil
	}
	return s.save(ctx, append(labels, label))
}

// Remove drops label. The last remaining label cannot be removed.
func (s *Service) Remove(ctx context.Context, label string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	labels, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if !Contains(labels, label) {
		return nil, fmt.Errorf("category %q: %w", label, models.ErrNotFound)
	}
	if len(labels) == 1 {
		return nil, fmt.Errorf("at least one category must remain: %w", models.ErrValidation)
	}

	kept := make([]string, 0, len(labels)-1)
	for _, l := range labels {
		if !strings.EqualFold(l, strings.TrimSpace(label)) {
			kept = append(kept, l)
		}
	}
	return s.save(ctx, kept)
}

// Replace stores a whole new list. An empty list is rejected rather than
// silently reset to the defaults.
func (s *Service) Replace(ctx context.Context, labels []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range labels {
		if strings.TrimSpace(l) != "" {
			return s.save(ctx, labels)
		}
	}
	return nil, fmt.Errorf("at least one category must remain: %w", models.ErrValidation)
}

func (s *Service) save(ctx context.Context, labels []string) ([]string, error) {
	labels = Normalize(labels)
	if err := s.Store.Save(ctx, labels); err != nil {
		return nil, err
	}
	return labels, nil
}
