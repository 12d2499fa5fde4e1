// Package listing owns the catalog records: storage backends, the repository
// service with its image policies, list queries and the HTTP handlers.
package listing

import (
	"context"

	"estatehub/pkg/models"
)

// Store is the persistence primitive. Save inserts or fully replaces a record
// by id; Get returns (nil, nil) when the id is unknown.
type Store interface {
	All(ctx context.Context) ([]models.Listing, error)
	Get(ctx context.Context, id int64) (*models.Listing, error)
	Save(ctx context.Context, l models.Listing) error
	SaveMany(ctx context.Context, ls []models.Listing) error
	Remove(ctx context.Context, id int64) (bool, error)
	Clear(ctx context.Context) error
}
