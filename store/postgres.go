package store

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"pricescout/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Postgres stores listings in a PostgreSQL table keyed by
// (product_query, url, observed_at).
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres opens a pgx pool, verifies connectivity, and ensures the
// schema exists. Failure here is a startup error and aborts the run.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS listings (
  product_query TEXT NOT NULL,
  title TEXT NOT NULL DEFAULT '',
  price DOUBLE PRECISION CHECK (price IS NULL OR price >= 0),
  url TEXT NOT NULL DEFAULT '',
  observed_at TIMESTAMPTZ NOT NULL,
  PRIMARY KEY (product_query, url, observed_at)
);
CREATE INDEX IF NOT EXISTS idx_listings_product ON listings (product_query);
CREATE INDEX IF NOT EXISTS idx_listings_observed_at ON listings (observed_at);`
	if _, err := p.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create listings table: %w", err)
	}
	return nil
}

// Append inserts one observation. Re-observations of the same ad at the
// same instant are ignored rather than duplicated.
func (p *Postgres) Append(ctx context.Context, listing models.Listing) error {
	query, args, err := psql.Insert("listings").
		Columns("product_query", "title", "price", "url", "observed_at").
		Values(listing.ProductQuery, listing.Title, listing.Price, listing.URL, listing.ObservedAt.UTC()).
		Suffix("ON CONFLICT (product_query, url, observed_at) DO NOTHING").
		ToSql()
	if err != nil {
		return &StoreError{Op: "append", Err: err}
	}
	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		return &StoreError{Op: "append", Err: err}
	}
	return nil
}

// Query returns a product's listings inside the time range, oldest first.
func (p *Postgres) Query(ctx context.Context, product string, from, to time.Time) ([]models.Listing, error) {
	builder := psql.Select("product_query", "title", "price", "url", "observed_at").
		From("listings").
		Where(sq.Eq{"product_query": product}).
		OrderBy("observed_at ASC")
	if !from.IsZero() {
		builder = builder.Where(sq.GtOrEq{"observed_at": from.UTC()})
	}
	if !to.IsZero() {
		builder = builder.Where(sq.LtOrEq{"observed_at": to.UTC()})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, &StoreError{Op: "query", Err: err}
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, &StoreError{Op: "query", Err: err}
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		var l models.Listing
		if err := rows.Scan(&l.ProductQuery, &l.Title, &l.Price, &l.URL, &l.ObservedAt); err != nil {
			return nil, &StoreError{Op: "query", Err: err}
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "query", Err: err}
	}
	return listings, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}
