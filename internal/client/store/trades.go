package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/atinyakov/tradejournal/internal/models"
)

// TradesAPI is the part of the API client the trades store depends on.
type TradesAPI interface {
	ListTrades(ctx context.Context) (*models.TradeList, error)
	CreateTrade(ctx context.Context, data models.TradeCreate) (*models.TradeResponse, error)
	UpdateTrade(ctx context.Context, id string, patch models.TradePatch) (*models.TradeResponse, error)
	DeleteTrade(ctx context.Context, id string) (*models.MessageResponse, error)
	DeleteTrades(ctx context.Context, ids []string) (*models.MessageResponse, error)
}

// Outcome tells how a successful update was reconciled with the local list.
type Outcome int

const (
	// OutcomeReplaced means the local entry was replaced by the server trade.
	OutcomeReplaced Outcome = iota + 1
	// OutcomeStaleLocalEntry means the trade was no longer in the local list
	// when the response arrived, so the list was left alone. A FetchTrades
	// brings the list back in line with the server.
	OutcomeStaleLocalEntry
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReplaced:
		return "replaced"
	case OutcomeStaleLocalEntry:
		return "stale-local-entry"
	}
	return "unknown"
}

// ErrEmptySelection is returned by DeleteTrades when no id is given.
var ErrEmptySelection = errors.New("no trades selected")

// Busy reports which operations are in flight.
type Busy struct {
	Loading  bool
	Creating bool
	Updating bool
	Deleting bool
}

// TradesStore holds the client-side list of trades and keeps it consistent
// with the server. The list only ever changes from server responses.
//
// The mutex is never held across an API call. Operations that are in flight
// at the same time apply their results in the order the responses arrive.
type TradesStore struct {
	api            TradesAPI
	log            *zap.Logger
	refetchOnStale bool

	mu       sync.Mutex
	trades   []models.Trade
	total    int
	loading  int
	creating int
	updating int
	deleting int
}

// TradesOption configures a TradesStore.
type TradesOption func(*TradesStore)

// WithTradesLogger sets the store logger.
func WithTradesLogger(l *zap.Logger) TradesOption {
	return func(s *TradesStore) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRefetchOnStale makes UpdateTrade call FetchTrades when it reports
// OutcomeStaleLocalEntry.
func WithRefetchOnStale() TradesOption {
	return func(s *TradesStore) { s.refetchOnStale = true }
}

// NewTradesStore returns an empty store backed by api.
func NewTradesStore(api TradesAPI, opts ...TradesOption) *TradesStore {
	s := &TradesStore{api: api, log: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Trades returns a deep copy of the list in storage order.
func (s *TradesStore) Trades() []models.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Trade, len(s.trades))
	for i, t := range s.trades {
		out[i] = t.Clone()
	}
	return out
}

// Trade returns a copy of the trade with id.
func (s *TradesStore) Trade(id string) (models.Trade, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.trades[i].Clone(), true
	}
	return models.Trade{}, false
}

// Total is the server-reported number of trades.
func (s *TradesStore) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Busy returns the current busy flags.
func (s *TradesStore) Busy() Busy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Busy{
		Loading:  s.loading > 0,
		Creating: s.creating > 0,
		Updating: s.updating > 0,
		Deleting: s.deleting > 0,
	}
}

// Reset empties the list, e.g. after logout.
func (s *TradesStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = nil
	s.total = 0
}

// begin raises a busy counter and returns the function that lowers it.
func (s *TradesStore) begin(counter *int) func() {
	s.mu.Lock()
	*counter++
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		*counter--
		s.mu.Unlock()
	}
}

// remove drops the matching trades and reports how many were listed. It must
// be called with mu held.
func (s *TradesStore) remove(match func(models.Trade) bool) int {
	n := len(s.trades)
	s.trades = slices.DeleteFunc(s.trades, match)
	return n - len(s.trades)
}

// indexOf must be called with mu held.
func (s *TradesStore) indexOf(id string) int {
	return slices.IndexFunc(s.trades, func(t models.Trade) bool { return t.ID == id })
}

// FetchTrades replaces the list and total with the server's collection. On
// failure the list is left as it was.
func (s *TradesStore) FetchTrades(ctx context.Context) error {
	done := s.begin(&s.loading)
	defer done()

	res, err := s.api.ListTrades(ctx)
	if err == nil && res == nil {
		err = errors.New("empty response")
	}
	if err != nil {
		s.log.Warn("failed to fetch trades", zap.Error(err))
		return fmt.Errorf("failed to fetch trades: %w", err)
	}

	trades := make([]models.Trade, 0, len(res.Trades))
	seen := make(map[string]struct{}, len(res.Trades))
	for _, t := range res.Trades {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		trades = append(trades, t.Clone())
	}

	s.mu.Lock()
	s.trades = trades
	s.total = res.Total
	s.mu.Unlock()

	s.log.Debug("fetched trades", zap.Int("count", len(trades)), zap.Int("total", res.Total))
	return nil
}

// CreateTrade validates and submits data. The trade returned by the server is
// put at the front of the list and the total grows by one.
func (s *TradesStore) CreateTrade(ctx context.Context, data models.TradeCreate) (*models.Trade, error) {
	if err := data.Validate(); err != nil {
		return nil, fmt.Errorf("invalid trade: %w", err)
	}

	done := s.begin(&s.creating)
	defer done()

	res, err := s.api.CreateTrade(ctx, data)
	if err != nil {
		s.log.Warn("failed to create trade", zap.Error(err))
		return nil, fmt.Errorf("failed to create trade: %w", err)
	}
	if res == nil || res.Trade == nil {
		return nil, errNoTrade("create")
	}
	created := res.Trade.Clone()

	s.mu.Lock()
	if i := s.indexOf(created.ID); i >= 0 {
		// A fetch that finished first already counted it.
		s.trades = slices.Delete(s.trades, i, i+1)
	} else {
		s.total++
	}
	s.trades = slices.Insert(s.trades, 0, created)
	s.mu.Unlock()

	s.log.Debug("created trade", zap.String("id", created.ID))
	out := created.Clone()
	return &out, nil
}

// UpdateTrade validates and submits patch. On success the local entry is
// replaced by the full server trade, never merged with the patch.
func (s *TradesStore) UpdateTrade(ctx context.Context, id string, patch models.TradePatch) (*models.Trade, Outcome, error) {
	if err := patch.Validate(); err != nil {
		return nil, 0, fmt.Errorf("invalid update: %w", err)
	}

	done := s.begin(&s.updating)
	defer done()

	res, err := s.api.UpdateTrade(ctx, id, patch)
	if err != nil {
		s.log.Warn("failed to update trade", zap.String("id", id), zap.Error(err))
		return nil, 0, fmt.Errorf("failed to update trade: %w", err)
	}
	if res == nil || res.Trade == nil {
		return nil, 0, errNoTrade("update")
	}
	updated := res.Trade.Clone()

	outcome := OutcomeReplaced
	s.mu.Lock()
	if i := s.indexOf(id); i >= 0 {
		s.trades[i] = updated
	} else {
		outcome = OutcomeStaleLocalEntry
	}
	s.mu.Unlock()

	if outcome == OutcomeStaleLocalEntry {
		s.log.Info("updated trade is not in the local list", zap.String("id", id))
		if s.refetchOnStale {
			if err := s.FetchTrades(ctx); err != nil {
				s.log.Warn("refetch after stale update failed", zap.Error(err))
			}
		}
	}

	out := updated.Clone()
	return &out, outcome, nil
}

// DeleteTrade deletes one trade and drops it from the list. The total only
// shrinks when the trade was still listed; a fetch that finished first has
// already counted the deletion.
func (s *TradesStore) DeleteTrade(ctx context.Context, id string) error {
	done := s.begin(&s.deleting)
	defer done()

	if _, err := s.api.DeleteTrade(ctx, id); err != nil {
		s.log.Warn("failed to delete trade", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete trade: %w", err)
	}

	s.mu.Lock()
	s.total = max(s.total-s.remove(func(t models.Trade) bool { return t.ID == id }), 0)
	s.mu.Unlock()

	s.log.Debug("deleted trade", zap.String("id", id))
	return nil
}

// DeleteTrades deletes every trade in ids with one request. Either all of
// them leave the list or none do.
func (s *TradesStore) DeleteTrades(ctx context.Context, ids []string) error {
	set := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := set[id]; ok {
			continue
		}
		set[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return ErrEmptySelection
	}

	done := s.begin(&s.deleting)
	defer done()

	if _, err := s.api.DeleteTrades(ctx, unique); err != nil {
		s.log.Warn("failed to delete trades", zap.Int("count", len(unique)), zap.Error(err))
		return fmt.Errorf("failed to delete trades: %w", err)
	}

	s.mu.Lock()
	s.total = max(s.total-s.remove(func(t models.Trade) bool {
		_, ok := set[t.ID]
		return ok
	}), 0)
	s.mu.Unlock()

	s.log.Debug("deleted trades", zap.Int("count", len(unique)))
	return nil
}

func errNoTrade(op string) error {
	return fmt.Errorf("failed to %s trade: response has no trade", op)
}
