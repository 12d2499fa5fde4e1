package listing

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"estatehub/pkg/models"
)

// MongoStore is the remote backend: one document per listing, keyed by the
// listing id.
type MongoStore struct {
	Coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{Coll: db.Collection("listings")}
}

func (s *MongoStore) All(ctx context.Context) ([]models.Listing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.Coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w: %v", models.ErrTransient, err)
	}
	defer cur.Close(ctx)

	out := make([]models.Listing, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode listings: %w: %v", models.ErrTransient, err)
	}
	for i := range out {
		fixDecoded(&out[i])
	}
	return out, nil
}

func (s *MongoStore) Get(ctx context.Context, id int64) (*models.Listing, error) {
	var l models.Listing
	err := s.Coll.FindOne(ctx, bson.M{"_id": id}).Decode(&l)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get listing %d: %w: %v", id, models.ErrTransient, err)
	}
	fixDecoded(&l)
	return &l, nil
}

func (s *MongoStore) Save(ctx context.Context, l models.Listing) error {
	_, err := s.Coll.ReplaceOne(ctx, bson.M{"_id": l.ID}, prepare(l), options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save listing %d: %w: %v", l.ID, models.ErrTransient, err)
	}
	return nil
}

func (s *MongoStore) SaveMany(ctx context.Context, ls []models.Listing) error {
	if len(ls) == 0 {
		return nil
	}
	writes := make([]mongo.WriteModel, 0, len(ls))
	for _, l := range ls {
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": l.ID}).
			SetReplacement(prepare(l)).
			SetUpsert(true))
	}
	if _, err := s.Coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true)); err != nil {
		return fmt.Errorf("bulk save listings: %w: %v", models.ErrTransient, err)
	}
	return nil
}

func (s *MongoStore) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.Coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("delete listing %d: %w: %v", id, models.ErrTransient, err)
	}
	return res.DeletedCount > 0, nil
}

func (s *MongoStore) Clear(ctx context.Context) error {
	if _, err := s.Coll.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("clear listings: %w: %v", models.ErrTransient, err)
	}
	return nil
}

func prepare(l models.Listing) models.Listing {
	if l.ImageReferences == nil {
		l.ImageReferences = []models.ImageRef{}
	}
	if !l.HasLocation() {
		l.Latitude, l.Longitude = nil, nil
	}
	return l
}

func fixDecoded(l *models.Listing) {
	if l.ImageReferences == nil {
		l.ImageReferences = []models.ImageRef{}
	}
	l.CreatedAt = l.CreatedAt.UTC()
	l.UpdatedAt = l.UpdatedAt.UTC()
}
