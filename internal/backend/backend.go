// Package backend assembles the storage stack for the configured backend:
// SQLite with local image blobs, or MongoDB with the remote upload service.
package backend

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"estatehub/internal/assets"
	"estatehub/internal/category"
	"estatehub/internal/listing"
	"estatehub/internal/transfer"
	"estatehub/pkg/database"
	"estatehub/pkg/utils"
)

type Backend struct {
	Kind       string
	Listings   *listing.Service
	Categories *category.Service
	Transfer   *transfer.Service
	Assets     assets.Store

	db    *sql.DB
	mongo *mongo.Client
}

// Open builds the backend named by cfg.Backend.
func Open(ctx context.Context, cfg utils.Config) (*Backend, error) {
	switch cfg.Backend {
	case utils.BackendRemote:
		return openRemote(ctx, cfg)
	default:
		return openLocal(cfg)
	}
}

func openLocal(cfg utils.Config) (*Backend, error) {
	dbCfg := database.DefaultConfig()
	if cfg.DBPath != "" {
		dbCfg.Path = cfg.DBPath
	}
	db, err := database.OpenMigrated(dbCfg)
	if err != nil {
		return nil, err
	}

	blobs := assets.NewBlobStore(db, cfg.Assets.MaxEdge, cfg.Assets.Quality)
	cats := category.NewService(category.NewSQLStore(db))
	ls := listing.NewService(listing.NewSQLStore(db), blobs, cats)

	log.Printf("[backend] local: %s", dbCfg.Path)
	return &Backend{
		Kind:       utils.BackendLocal,
		Listings:   ls,
		Categories: cats,
		Transfer:   transfer.NewService(ls, cats, blobs),
		Assets:     blobs,
		db:         db,
	}, nil
}

func openRemote(ctx context.Context, cfg utils.Config) (*Backend, error) {
	client, err := database.ConnectMongo(ctx, cfg.Mongo.URI)
	if err != nil {
		return nil, err
	}
	mdb := client.Database(cfg.Mongo.Database)

	remote := assets.NewRemoteStore(cfg.Assets.UploadEndpoint, cfg.Assets.UploadTimeout)
	cats := category.NewService(category.NewMongoStore(mdb))
	ls := listing.NewService(listing.NewMongoStore(mdb), remote, cats)

	log.Printf("[backend] remote: mongo db %q, uploads via %s", cfg.Mongo.Database, remote.Endpoint)
	return &Backend{
		Kind:       utils.BackendRemote,
		Listings:   ls,
		Categories: cats,
		Transfer:   transfer.NewService(ls, cats, nil),
		Assets:     remote,
		mongo:      client,
	}, nil
}

// Ping checks the primary store.
func (b *Backend) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if b.mongo != nil {
		if err := b.mongo.Ping(ctx, nil); err != nil {
			return fmt.Errorf("mongo ping: %w", err)
		}
		return nil
	}
	return b.db.PingContext(ctx)
}

func (b *Backend) Close() error {
	if b.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return b.mongo.Disconnect(ctx)
	}
	return b.db.Close()
}
