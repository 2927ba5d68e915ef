package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/imgscout/scrapers"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

var (
	ErrNotFound        = errors.New("product not found")
	ErrInvalidImageURL = errors.New("image url is not fetchable")
)

const createProductsTable = `CREATE TABLE IF NOT EXISTS products (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT,
	image_url TEXT
)`

// Product is a catalog entry chosen from search results.
type Product struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}

// Store persists products in a sqlite table.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open opens (or creates) the catalog database at path. ":memory:" is accepted for tests.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createProductsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create products table: %w", err)
	}

	logger = logger.With().Str("component", "catalog").Logger()
	logger.Debug().Str("path", path).Msg("catalog opened")
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append stores a new product and returns its id.
func (s *Store) Append(ctx context.Context, name, imageURL string) (int64, error) {
	if !scrapers.IsFetchable(imageURL) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidImageURL, imageURL)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO products (name, image_url) VALUES (?, ?)`, name, imageURL)
	if err != nil {
		return 0, fmt.Errorf("failed to insert product: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read product id: %w", err)
	}

	s.logger.Info().Int64("id", id).Str("name", name).Str("image_url", imageURL).Msg("product added")
	return id, nil
}

// List returns all products ordered by id.
func (s *Store) List(ctx context.Context) ([]Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, image_url FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		var p Product
		var name, imageURL sql.NullString
		if err := rows.Scan(&p.ID, &name, &imageURL); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		p.Name = name.String
		p.ImageURL = imageURL.String
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}
	return products, nil
}

// Get returns a single product.
func (s *Store) Get(ctx context.Context, id int64) (Product, error) {
	var p Product
	var name, imageURL sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, image_url FROM products WHERE id = ?`, id).
		Scan(&p.ID, &name, &imageURL)
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return Product{}, fmt.Errorf("failed to query product: %w", err)
	}
	p.Name = name.String
	p.ImageURL = imageURL.String
	return p, nil
}

// Delete removes a product by id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}

	s.logger.Info().Int64("id", id).Msg("product deleted")
	return nil
}
