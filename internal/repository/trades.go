package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/atinyakov/tradejournal/internal/models"
)

// PostgresTradeRepository implements trade storage against a PostgreSQL database.
type PostgresTradeRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
}

// NewPostgresTradeRepository creates a PostgresTradeRepository over db.
func NewPostgresTradeRepository(db *sql.DB) *PostgresTradeRepository {
	return &PostgresTradeRepository{DB: db}
}

const tradeSelect = `
	SELECT tr.id, tr.status, tr.side, tr.type, tr.notes,
	       tr.entry, tr.stoploss, tr.target, tr.timeframe, tr.score,
	       tr.entry_x, tr.stoploss_x, tr.target_x,
	       tr.entry_at, tr.stoploss_at, tr.target_at,
	       tr.created_at, tr.edited_at, tr.updated_at, tr.status_updated_at,
	       tr.risk_per_unit, tr.reward_per_unit, tr.risk_reward_ratio, tr.tags,
	       tk.id, tk.symbol, tk.exchange, tk.name, tk.last_price, tk.last_updated
	  FROM trades tr
	  JOIN tickers tk ON tk.id = tr.ticker_id`

type scanner interface {
	Scan(dest ...any) error
}

// scanTrade reads one row of tradeSelect. Tags come back as names only;
// their ids are filled in by attachTagIDs.
func scanTrade(row scanner) (models.Trade, error) {
	var (
		t    models.Trade
		tags pq.StringArray
	)
	err := row.Scan(
		&t.ID, &t.Status, &t.Side, &t.Type, &t.Notes,
		&t.Entry, &t.StopLoss, &t.Target, &t.Timeframe, &t.Score,
		&t.EntryX, &t.StopLossX, &t.TargetX,
		&t.EntryAt, &t.StopLossAt, &t.TargetAt,
		&t.CreatedAt, &t.EditedAt, &t.UpdatedAt, &t.StatusUpdatedAt,
		&t.RiskPerUnit, &t.RewardPerUnit, &t.RiskRewardRatio, &tags,
		&t.Ticker.ID, &t.Ticker.Symbol, &t.Ticker.Exchange, &t.Ticker.Name,
		&t.Ticker.LastPrice, &t.Ticker.LastUpdated,
	)
	if err != nil {
		return t, err
	}
	t.Symbol = t.Ticker.Symbol
	t.LastPrice = t.Ticker.LastPrice
	t.Tags = make([]models.Tag, 0, len(tags))
	for _, name := range tags {
		t.Tags = append(t.Tags, models.Tag{Name: name})
	}
	return t, nil
}

// attachTagIDs resolves the ids of every tag referenced by trades in one query.
func (r *PostgresTradeRepository) attachTagIDs(ctx context.Context, trades []models.Trade) error {
	var names []string
	for _, t := range trades {
		names = append(names, t.TagNames()...)
	}
	if len(names) == 0 {
		return nil
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name FROM tags WHERE name = ANY($1)`, pq.Array(names))
	if err != nil {
		return fmt.Errorf("load tag ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]string, len(names))
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return fmt.Errorf("scan tag: %w", err)
		}
		ids[name] = id
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load tag ids: %w", err)
	}
	for i := range trades {
		for j := range trades[i].Tags {
			trades[i].Tags[j].ID = ids[trades[i].Tags[j].Name]
		}
	}
	return nil
}

// ListTrades returns every trade of the user, newest first.
func (r *PostgresTradeRepository) ListTrades(ctx context.Context, userID string) ([]models.Trade, error) {
	rows, err := r.DB.QueryContext(ctx, tradeSelect+`
	 WHERE tr.user_id = $1
	 ORDER BY tr.created_at DESC, tr.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListTrades: %w", err)
	}
	defer rows.Close()

	trades := []models.Trade{}
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListTrades: %w", err)
	}
	rows.Close()

	if err := r.attachTagIDs(ctx, trades); err != nil {
		return nil, err
	}
	return trades, nil
}

// GetTrade returns one trade of the user or models.ErrNotFound.
func (r *PostgresTradeRepository) GetTrade(ctx context.Context, userID, id string) (*models.Trade, error) {
	t, err := scanTrade(r.DB.QueryRowContext(ctx, tradeSelect+`
	 WHERE tr.user_id = $1 AND tr.id = $2`, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetTrade: %w", err)
	}
	trades := []models.Trade{t}
	if err := r.attachTagIDs(ctx, trades); err != nil {
		return nil, err
	}
	return &trades[0], nil
}

// InsertTrade stores a new trade owned by userID.
func (r *PostgresTradeRepository) InsertTrade(ctx context.Context, userID string, t *models.Trade) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO trades (
			id, user_id, ticker_id, status, side, type, notes,
			entry, stoploss, target, timeframe, score,
			entry_x, stoploss_x, target_x, entry_at, stoploss_at, target_at,
			created_at, edited_at, updated_at, status_updated_at,
			risk_per_unit, reward_per_unit, risk_reward_ratio, tags
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22,
			$23, $24, $25, $26
		)`,
		t.ID, userID, t.Ticker.ID, t.Status, t.Side, t.Type, t.Notes,
		t.Entry, t.StopLoss, t.Target, t.Timeframe, t.Score,
		t.EntryX, t.StopLossX, t.TargetX, t.EntryAt, t.StopLossAt, t.TargetAt,
		t.CreatedAt, t.EditedAt, t.UpdatedAt, t.StatusUpdatedAt,
		t.RiskPerUnit, t.RewardPerUnit, t.RiskRewardRatio, pq.Array(t.TagNames()),
	)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// UpdateTrade overwrites the stored trade with t. It returns
// models.ErrNotFound when the user has no trade with that id.
func (r *PostgresTradeRepository) UpdateTrade(ctx context.Context, userID string, t *models.Trade) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE trades SET
			ticker_id = $3, status = $4, side = $5, type = $6, notes = $7,
			entry = $8, stoploss = $9, target = $10, timeframe = $11, score = $12,
			entry_x = $13, stoploss_x = $14, target_x = $15,
			edited_at = $16, updated_at = $17,
			risk_per_unit = $18, reward_per_unit = $19, risk_reward_ratio = $20, tags = $21
		 WHERE user_id = $1 AND id = $2`,
		userID, t.ID,
		t.Ticker.ID, t.Status, t.Side, t.Type, t.Notes,
		t.Entry, t.StopLoss, t.Target, t.Timeframe, t.Score,
		t.EntryX, t.StopLossX, t.TargetX,
		t.EditedAt, t.UpdatedAt,
		t.RiskPerUnit, t.RewardPerUnit, t.RiskRewardRatio, pq.Array(t.TagNames()),
	)
	if err != nil {
		return fmt.Errorf("update trade: %w", err)
	}
	return requireAffected(res)
}

// DeleteTrade removes one trade of the user.
func (r *PostgresTradeRepository) DeleteTrade(ctx context.Context, userID, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM trades WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("delete trade: %w", err)
	}
	return requireAffected(res)
}

// DeleteTrades removes the given trades of the user in one statement and
// returns how many rows were deleted. Ids of other users are ignored.
func (r *PostgresTradeRepository) DeleteTrades(ctx context.Context, userID string, ids []string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM trades WHERE user_id = $1 AND id = ANY($2)`, userID, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("delete trades: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
