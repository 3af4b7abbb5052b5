package service

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/atinyakov/tradejournal/internal/models"
)

// TradeRepository defines the trade persistence operations.
type TradeRepository interface {
	ListTrades(ctx context.Context, userID string) ([]models.Trade, error)
	GetTrade(ctx context.Context, userID, id string) (*models.Trade, error)
	InsertTrade(ctx context.Context, userID string, t *models.Trade) error
	UpdateTrade(ctx context.Context, userID string, t *models.Trade) error
	DeleteTrade(ctx context.Context, userID, id string) error
	DeleteTrades(ctx context.Context, userID string, ids []string) (int64, error)
}

// TagRepository resolves tickers and keeps the shared tag set.
type TagRepository interface {
	TickerByID(ctx context.Context, id string) (*models.Ticker, error)
	UpsertTags(ctx context.Context, names []string) ([]models.Tag, error)
}

// TradeService implements the trade journal operations of one user.
type TradeService struct {
	trades  TradeRepository
	catalog TagRepository
	now     func() time.Time
	newID   func() string
}

// NewTradeService constructs a TradeService.
func NewTradeService(trades TradeRepository, catalog TagRepository) *TradeService {
	return &TradeService{
		trades:  trades,
		catalog: catalog,
		now:     time.Now,
		newID:   func() string { return ulid.Make().String() },
	}
}

// List returns the user's trades, newest first.
func (s *TradeService) List(ctx context.Context, userID string) ([]models.Trade, error) {
	return s.trades.ListTrades(ctx, userID)
}

// Get returns one trade of the user.
func (s *TradeService) Get(ctx context.Context, userID, id string) (*models.Trade, error) {
	return s.trades.GetTrade(ctx, userID, id)
}

// Create validates req, stores a new trade and returns it as stored.
func (s *TradeService) Create(ctx context.Context, userID string, req models.TradeCreate) (*models.Trade, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	ticker, err := s.ticker(ctx, req.TickerID)
	if err != nil {
		return nil, err
	}
	tags, err := s.catalog.UpsertTags(ctx, tagNames(req.Tags))
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	t := &models.Trade{
		ID:        s.newID(),
		Symbol:    ticker.Symbol,
		LastPrice: ticker.LastPrice,
		Status:    models.StatusActive,
		Side:      req.Side,
		Notes:     req.Notes,
		Entry:     req.Entry,
		StopLoss:  req.StopLoss,
		Target:    req.Target,
		Timeframe: req.Timeframe,
		Score:     req.Score,
		EntryX:    req.EntryX,
		StopLossX: req.StopLossX,
		TargetX:   req.TargetX,
		CreatedAt: now,
		UpdatedAt: now,
		Ticker:    *ticker,
		Tags:      tags,
	}
	t.ApplyDerived()
	if err := s.trades.InsertTrade(ctx, userID, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Update applies patch to the stored trade. Only set fields change.
func (s *TradeService) Update(ctx context.Context, userID, id string, patch models.TradePatch) (*models.Trade, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	t, err := s.trades.GetTrade(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	patch.Apply(t)
	if tickerID, ok := patch.TickerID.Get(); ok && tickerID != t.Ticker.ID {
		ticker, err := s.ticker(ctx, tickerID)
		if err != nil {
			return nil, err
		}
		t.Ticker = *ticker
		t.Symbol = ticker.Symbol
		t.LastPrice = ticker.LastPrice
	}
	if in, ok := patch.Tags.Get(); ok || patch.Tags.IsNull() {
		tags, err := s.catalog.UpsertTags(ctx, tagNames(in))
		if err != nil {
			return nil, err
		}
		t.Tags = tags
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	t.EditedAt = &now
	t.UpdatedAt = now
	t.ApplyDerived()
	if err := s.trades.UpdateTrade(ctx, userID, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes one trade of the user.
func (s *TradeService) Delete(ctx context.Context, userID, id string) error {
	return s.trades.DeleteTrade(ctx, userID, id)
}

// DeleteMany removes the given trades of the user in one statement and
// returns how many were deleted.
func (s *TradeService) DeleteMany(ctx context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, &models.FieldError{Field: "ids", Message: "at least one id is required"}
	}
	return s.trades.DeleteTrades(ctx, userID, ids)
}

// ticker reports an unknown ticker as a validation error on ticker_id.
func (s *TradeService) ticker(ctx context.Context, id string) (*models.Ticker, error) {
	tk, err := s.catalog.TickerByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, &models.FieldError{Field: "ticker_id", Message: "unknown ticker"}
	}
	return tk, err
}

func tagNames(in []models.TagInput) []string {
	seen := make(map[string]bool, len(in))
	names := make([]string, 0, len(in))
	for _, t := range in {
		if seen[t.Name] {
			continue
		}
		seen[t.Name] = true
		names = append(names, t.Name)
	}
	return names
}
