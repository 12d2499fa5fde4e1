package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estatehub/internal/assets"
	"estatehub/internal/listing"
	"estatehub/pkg/models"
	"estatehub/pkg/utils"
)

func TestOpenLocal(t *testing.T) {
	ctx := context.Background()
	cfg := utils.DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "data.db")

	b, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, utils.BackendLocal, b.Kind)
	assert.IsType(t, &assets.BlobStore{}, b.Assets)
	require.NoError(t, b.Ping(ctx))

	saved, err := b.Listings.Upsert(ctx, models.Listing{Title: "first"}, listing.KeepExisting())
	require.NoError(t, err)
	assert.Equal(t, int64(1), saved.ID)

	p, err := b.Transfer.Export(ctx)
	require.NoError(t, err)
	assert.Len(t, p.Items, 1)
	assert.NotNil(t, p.Images)
}
