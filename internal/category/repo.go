package category

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"estatehub/pkg/models"
)

// Store persists the raw label list. Load returns nil when nothing was saved.
type Store interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, labels []string) error
}

const settingsKey = "categories"

// SQLStore keeps the list as one JSON value in the settings table.
type SQLStore struct {
	DB *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{DB: db}
}

func (s *SQLStore) Load(ctx context.Context) ([]string, error) {
	var raw string
	err := s.DB.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, settingsKey).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load categories: %w", err)
	}

	var labels []string
	if err := json.Unmarshal([]byte(raw), &labels); err != nil {
		// a corrupt slot reads as empty; Normalize restores the defaults
		return nil, nil
	}
	return labels, nil
}

func (s *SQLStore) Save(ctx context.Context, labels []string) error {
	b, err := json.Marshal(labels)
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO settings (key, value)
		VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, settingsKey, string(b))
	if err != nil {
		return fmt.Errorf("save categories: %w", err)
	}
	return nil
}

// MongoStore keeps the list in a singleton document of the settings
// collection.
type MongoStore struct {
	Coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{Coll: db.Collection("settings")}
}

type settingsDoc struct {
	ID    string   `bson:"_id"`
	Items []string `bson:"items"`
}

func (s *MongoStore) Load(ctx context.Context) ([]string, error) {
	var doc settingsDoc
	err := s.Coll.FindOne(ctx, bson.M{"_id": settingsKey}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("load categories: %w: %v", models.ErrTransient, err)
	}
	return doc.Items, nil
}

func (s *MongoStore) Save(ctx context.Context, labels []string) error {
	_, err := s.Coll.ReplaceOne(ctx,
		bson.M{"_id": settingsKey},
		settingsDoc{ID: settingsKey, Items: labels},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save categories: %w: %v", models.ErrTransient, err)
	}
	return nil
}
