package listing

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"estatehub/pkg/models"
)

// SQLStore is the local backend: one row per listing in SQLite, image
// references kept as a JSON array.
type SQLStore struct {
	DB *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{DB: db}
}

const selectListing = `
	SELECT id, title, description, type, price, price_unit, facebook_url,
	       latitude, longitude, image_refs, created_at, updated_at
	FROM listings
`

const upsertListing = `
	INSERT INTO listings (id, title, description, type, price, price_unit, facebook_url,
	                      latitude, longitude, image_refs, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
	  title = excluded.title,
	  description = excluded.description,
	  type = excluded.type,
	  price = excluded.price,
	  price_unit = excluded.price_unit,
	  facebook_url = excluded.facebook_url,
	  latitude = excluded.latitude,
	  longitude = excluded.longitude,
	  image_refs = excluded.image_refs,
	  created_at = excluded.created_at,
	  updated_at = excluded.updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (models.Listing, error) {
	var (
		l         models.Listing
		price     sql.NullFloat64
		lat       sql.NullFloat64
		lng       sql.NullFloat64
		refsJSON  string
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(
		&l.ID, &l.Title, &l.Description, &l.Type, &price, &l.PriceUnit, &l.FacebookURL,
		&lat, &lng, &refsJSON, &createdAt, &updatedAt,
	); err != nil {
		return l, err
	}

	if price.Valid {
		l.Price = &price.Float64
	}
	if lat.Valid && lng.Valid {
		l.Latitude = &lat.Float64
		l.Longitude = &lng.Float64
	}
	if err := json.Unmarshal([]byte(refsJSON), &l.ImageReferences); err != nil {
		return l, fmt.Errorf("decode image refs for %d: %w", l.ID, err)
	}
	if l.ImageReferences == nil {
		l.ImageReferences = []models.ImageRef{}
	}
	l.CreatedAt = createdAt.UTC()
	l.UpdatedAt = updatedAt.UTC()
	return l, nil
}

func (s *SQLStore) All(ctx context.Context) ([]models.Listing, error) {
	rows, err := s.DB.QueryContext(ctx, selectListing+` ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	out := make([]models.Listing, 0)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (s *SQLStore) Get(ctx context.Context, id int64) (*models.Listing, error) {
	row := s.DB.QueryRowContext(ctx, selectListing+` WHERE id = ?`, id)
	l, err := scanListing(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan get: %w", err)
	}
	return &l, nil
}

func (s *SQLStore) Save(ctx context.Context, l models.Listing) error {
	args, err := listingArgs(l)
	if err != nil {
		return err
	}
	if _, err := s.DB.ExecContext(ctx, upsertListing, args...); err != nil {
		return fmt.Errorf("upsert listing %d: %w", l.ID, err)
	}
	return nil
}

func (s *SQLStore) SaveMany(ctx context.Context, ls []models.Listing) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertListing)
	if err != nil {
		return fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	for _, l := range ls {
		args, err := listingArgs(l)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("exec upsert for %d: %w", l.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *SQLStore) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM listings WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete listing: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *SQLStore) Clear(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM listings`); err != nil {
		return fmt.Errorf("clear listings: %w", err)
	}
	return nil
}

func listingArgs(l models.Listing) ([]any, error) {
	refs := l.ImageReferences
	if refs == nil {
		refs = []models.ImageRef{}
	}
	refsJSON, err := json.Marshal(refs)
	if err != nil {
		return nil, fmt.Errorf("marshal image refs for %d: %w", l.ID, err)
	}

	return []any{
		l.ID,
		l.Title,
		l.Description,
		l.Type,
		nullFloat(l.Price),
		l.PriceUnit,
		l.FacebookURL,
		nullFloat(l.Latitude),
		nullFloat(l.Longitude),
		string(refsJSON),
		l.CreatedAt.UTC(),
		l.UpdatedAt.UTC(),
	}, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
