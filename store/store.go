package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

// ErrNotFound is returned when a product row does not exist.
var ErrNotFound = errors.New("product not found")

// ProductRow is a products table row
type ProductRow struct {
	ID       int64
	Name     string
	ImageURL sql.NullString
	Price    float64
	Stock    int
}

// PostgresStore serves the catalog and the cart snapshot slot from Postgres
type PostgresStore struct {
	DB *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	DB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := DB.Ping(); err != nil {
		_ = DB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{DB: DB}, nil
}

func (s *PostgresStore) Close() error { return s.DB.Close() }

// CreateProduct inserts a product and returns its id
func (s *PostgresStore) CreateProduct(ctx context.Context, name, imageURL string, price float64, stock int) (int64, error) {
	if stock < 0 {
		return 0, errors.New("stock cannot be negative")
	}
	var id int64
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO products (name, image_url, price, stock) VALUES ($1, $2, $3, $4) RETURNING id`,
		name, imageURL, price, stock,
	).Scan(&id)
	return id, err
}

func (s *PostgresStore) ListProducts(ctx context.Context) ([]ProductRow, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, name, image_url, price, stock FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ProductRow{}
	for rows.Next() {
		var p ProductRow
		if err := rows.Scan(&p.ID, &p.Name, &p.ImageURL, &p.Price, &p.Stock); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetProduct(ctx context.Context, productID int64) (ProductRow, error) {
	var p ProductRow
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, name, image_url, price, stock FROM products WHERE id=$1`, productID,
	).Scan(&p.ID, &p.Name, &p.ImageURL, &p.Price, &p.Stock)
	if errors.Is(err, sql.ErrNoRows) {
		return ProductRow{}, ErrNotFound
	}
	return p, err
}
