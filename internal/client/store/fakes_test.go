package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/atinyakov/tradejournal/internal/models"
)

var errServer = errors.New("server unavailable")

// mockTradesAPI lets each test script the responses it needs.
type mockTradesAPI struct {
	ListTradesFunc   func(ctx context.Context) (*models.TradeList, error)
	CreateTradeFunc  func(ctx context.Context, data models.TradeCreate) (*models.TradeResponse, error)
	UpdateTradeFunc  func(ctx context.Context, id string, patch models.TradePatch) (*models.TradeResponse, error)
	DeleteTradeFunc  func(ctx context.Context, id string) (*models.MessageResponse, error)
	DeleteTradesFunc func(ctx context.Context, ids []string) (*models.MessageResponse, error)
}

func (m *mockTradesAPI) ListTrades(ctx context.Context) (*models.TradeList, error) {
	return m.ListTradesFunc(ctx)
}
func (m *mockTradesAPI) CreateTrade(ctx context.Context, data models.TradeCreate) (*models.TradeResponse, error) {
	return m.CreateTradeFunc(ctx, data)
}
func (m *mockTradesAPI) UpdateTrade(ctx context.Context, id string, patch models.TradePatch) (*models.TradeResponse, error) {
	return m.UpdateTradeFunc(ctx, id, patch)
}
func (m *mockTradesAPI) DeleteTrade(ctx context.Context, id string) (*models.MessageResponse, error) {
	return m.DeleteTradeFunc(ctx, id)
}
func (m *mockTradesAPI) DeleteTrades(ctx context.Context, ids []string) (*models.MessageResponse, error) {
	return m.DeleteTradesFunc(ctx, ids)
}

// fakeServer is an in-memory trades backend. Setting fail makes every call
// return errServer without touching its data.
type fakeServer struct {
	mu     sync.Mutex
	trades []models.Trade
	nextID int
	fail   bool
	calls  int
}

func newFakeServer(trades ...models.Trade) *fakeServer {
	return &fakeServer{trades: trades, nextID: 1000}
}

func (f *fakeServer) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *fakeServer) ListTrades(context.Context) (*models.TradeList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return nil, errServer
	}
	out := make([]models.Trade, len(f.trades))
	for i, t := range f.trades {
		out[i] = t.Clone()
	}
	return &models.TradeList{Trades: out, Total: len(out)}, nil
}

func (f *fakeServer) CreateTrade(_ context.Context, data models.TradeCreate) (*models.TradeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return nil, errServer
	}
	f.nextID++
	t := models.Trade{
		ID:       fmt.Sprintf("t%d", f.nextID),
		Side:     data.Side,
		Entry:    data.Entry,
		StopLoss: data.StopLoss,
		Target:   data.Target,
		Score:    data.Score,
		Status:   models.StatusActive,
		Ticker:   models.Ticker{ID: data.TickerID},
	}
	t.ApplyDerived()
	f.trades = append([]models.Trade{t}, f.trades...)
	c := t.Clone()
	return &models.TradeResponse{Trade: &c, Message: "created"}, nil
}

func (f *fakeServer) UpdateTrade(_ context.Context, id string, patch models.TradePatch) (*models.TradeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return nil, errServer
	}
	i := slices.IndexFunc(f.trades, func(t models.Trade) bool { return t.ID == id })
	if i < 0 {
		return nil, errors.New("trade not found")
	}
	patch.Apply(&f.trades[i])
	f.trades[i].ApplyDerived()
	c := f.trades[i].Clone()
	return &models.TradeResponse{Trade: &c, Message: "updated"}, nil
}

func (f *fakeServer) DeleteTrade(_ context.Context, id string) (*models.MessageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return nil, errServer
	}
	f.trades = slices.DeleteFunc(f.trades, func(t models.Trade) bool { return t.ID == id })
	return &models.MessageResponse{Message: "deleted"}, nil
}

func (f *fakeServer) DeleteTrades(_ context.Context, ids []string) (*models.MessageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return nil, errServer
	}
	f.trades = slices.DeleteFunc(f.trades, func(t models.Trade) bool { return slices.Contains(ids, t.ID) })
	return &models.MessageResponse{Message: "deleted"}, nil
}

// mockAuthAPI scripts auth responses.
type mockAuthAPI struct {
	LoginFunc    func(ctx context.Context, creds models.LoginCredentials) (*models.AuthResponse, error)
	RegisterFunc func(ctx context.Context, creds models.RegisterCredentials) (*models.AuthResponse, error)
	RefreshFunc  func(ctx context.Context) (*models.RefreshResponse, error)
	MeFunc       func(ctx context.Context) (*models.User, error)
	LogoutFunc   func(ctx context.Context) error
}

func (m *mockAuthAPI) Login(ctx context.Context, c models.LoginCredentials) (*models.AuthResponse, error) {
	return m.LoginFunc(ctx, c)
}
func (m *mockAuthAPI) Register(ctx context.Context, c models.RegisterCredentials) (*models.AuthResponse, error) {
	return m.RegisterFunc(ctx, c)
}
func (m *mockAuthAPI) Refresh(ctx context.Context) (*models.RefreshResponse, error) {
	return m.RefreshFunc(ctx)
}
func (m *mockAuthAPI) Me(ctx context.Context) (*models.User, error) {
	return m.MeFunc(ctx)
}
func (m *mockAuthAPI) Logout(ctx context.Context) error {
	if m.LogoutFunc == nil {
		return nil
	}
	return m.LogoutFunc(ctx)
}

// memoryIdentity is an IdentityStore kept in memory.
type memoryIdentity struct {
	mu   sync.Mutex
	user *models.User
	err  error
}

func (m *memoryIdentity) Load() (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneUser(m.user), m.err
}

func (m *memoryIdentity) Save(u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = cloneUser(u)
	return nil
}

func (m *memoryIdentity) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = nil
	return nil
}

func ptr[T any](v T) *T { return &v }
