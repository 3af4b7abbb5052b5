package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/atinyakov/tradejournal/internal/models"
)

// PostgresCatalogRepository reads tickers and maintains the shared tag set.
type PostgresCatalogRepository struct {
	DB *sql.DB
	// NewID generates tag ids.
	NewID func() string
}

// NewPostgresCatalogRepository creates a PostgresCatalogRepository over db.
func NewPostgresCatalogRepository(db *sql.DB) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{DB: db, NewID: uuid.NewString}
}

// TickerByID returns the ticker with the given id or models.ErrNotFound.
func (r *PostgresCatalogRepository) TickerByID(ctx context.Context, id string) (*models.Ticker, error) {
	var tk models.Ticker
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, symbol, exchange, name, last_price, last_updated FROM tickers WHERE id = $1
	`, id).Scan(&tk.ID, &tk.Symbol, &tk.Exchange, &tk.Name, &tk.LastPrice, &tk.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("TickerByID: %w", err)
	}
	return &tk, nil
}

// SearchTickers returns one page of tickers whose symbol or name starts with
// query, ignoring case, plus the number of matches.
func (r *PostgresCatalogRepository) SearchTickers(ctx context.Context, query string, limit, offset int) ([]models.Ticker, int, error) {
	pattern := likePrefix(query)

	var total int
	if err := r.DB.QueryRowContext(ctx, `
		SELECT count(*) FROM tickers WHERE symbol ILIKE $1 OR name ILIKE $1
	`, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tickers: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, symbol, exchange, name, last_price, last_updated
		  FROM tickers
		 WHERE symbol ILIKE $1 OR name ILIKE $1
		 ORDER BY symbol
		 LIMIT $2 OFFSET $3
	`, pattern, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("SearchTickers: %w", err)
	}
	defer rows.Close()

	tickers := []models.Ticker{}
	for rows.Next() {
		var tk models.Ticker
		if err := rows.Scan(&tk.ID, &tk.Symbol, &tk.Exchange, &tk.Name, &tk.LastPrice, &tk.LastUpdated); err != nil {
			return nil, 0, fmt.Errorf("scan: %w", err)
		}
		tickers = append(tickers, tk)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("SearchTickers: %w", err)
	}
	return tickers, total, nil
}

// SearchTags returns one page of tags whose name starts with query, ignoring
// case, plus the number of matches.
func (r *PostgresCatalogRepository) SearchTags(ctx context.Context, query string, limit, offset int) ([]models.Tag, int, error) {
	pattern := likePrefix(query)

	var total int
	if err := r.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM tags WHERE name ILIKE $1`, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tags: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, name FROM tags WHERE name ILIKE $1 ORDER BY name LIMIT $2 OFFSET $3
	`, pattern, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("SearchTags: %w", err)
	}
	defer rows.Close()

	tags := []models.Tag{}
	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, 0, fmt.Errorf("scan: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("SearchTags: %w", err)
	}
	return tags, total, nil
}

// UpsertTags makes sure every name exists in the tag set and returns the
// tags in the order of names.
func (r *PostgresCatalogRepository) UpsertTags(ctx context.Context, names []string) ([]models.Tag, error) {
	if len(names) == 0 {
		return []models.Tag{}, nil
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		tag := models.Tag{Name: name}
		err := tx.QueryRowContext(ctx, `
			INSERT INTO tags (id, name) VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, r.NewID(), name).Scan(&tag.ID)
		if err != nil {
			return nil, fmt.Errorf("upsert tag %q: %w", name, err)
		}
		tags = append(tags, tag)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return tags, nil
}

// likePrefix escapes LIKE wildcards in q and appends %.
func likePrefix(q string) string {
	out := make([]rune, 0, len(q)+1)
	for _, r := range q {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(append(out, '%'))
}
