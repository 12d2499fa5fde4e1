package seed

import (
	"context"
	"errors"
	"fmt"
	"log"

	"estatehub/internal/listing"
	"estatehub/internal/transfer"
)

// ErrNoSource means every configured source failed or none was configured.
var ErrNoSource = errors.New("no seed source succeeded")

type Bootstrapper struct {
	Sources  []Source
	Listings *listing.Service
	Transfer *transfer.Service
}

func NewBootstrapper(listings *listing.Service, tr *transfer.Service, sources ...Source) *Bootstrapper {
	return &Bootstrapper{Sources: sources, Listings: listings, Transfer: tr}
}

// Bootstrap imports the first seed that can be fetched and parsed. Unless
// force is set it does nothing when the catalog already has listings. A
// broken source is logged and the next one tried.
func (b *Bootstrapper) Bootstrap(ctx context.Context, force bool) (transfer.Result, error) {
	if !force {
		existing, err := b.Listings.List(ctx)
		if err != nil {
			return transfer.Result{}, fmt.Errorf("seed check: %w", err)
		}
		if len(existing) > 0 {
			log.Printf("[seed] catalog has %d listing(s), skipping", len(existing))
			return transfer.Result{}, nil
		}
	}

	for _, src := range b.Sources {
		log.Printf("[seed] fetching from %s", src.Name())
		data, err := src.Fetch(ctx)
		if err != nil {
			log.Printf("[seed] source %s error: %v", src.Name(), err)
			continue
		}

		res, err := b.Transfer.Import(ctx, data)
		if err != nil {
			log.Printf("[seed] source %s import error: %v", src.Name(), err)
			continue
		}

		log.Printf("[seed] imported %d listing(s) and %d image(s) from %s", res.Applied, res.Images, src.Name())
		return res, nil
	}
	return transfer.Result{}, ErrNoSource
}
