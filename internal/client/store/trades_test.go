package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/tradejournal/internal/models"
)

func seeded(t *testing.T, api TradesAPI, opts ...TradesOption) *TradesStore {
	t.Helper()
	s := NewTradesStore(api, opts...)
	require.NoError(t, s.FetchTrades(context.Background()))
	return s
}

func TestCreateTrade_PrependsServerTrade(t *testing.T) {
	api := &mockTradesAPI{
		ListTradesFunc: func(context.Context) (*models.TradeList, error) {
			return &models.TradeList{Trades: []models.Trade{{ID: "1", Entry: 100}}, Total: 1}, nil
		},
		CreateTradeFunc: func(_ context.Context, data models.TradeCreate) (*models.TradeResponse, error) {
			assert.Equal(t, "t1", data.TickerID)
			return &models.TradeResponse{
				Trade:   &models.Trade{ID: "2", Entry: 150, Side: models.SideBuy, Status: models.StatusActive},
				Message: "Trade created successfully",
			}, nil
		},
	}
	s := seeded(t, api)

	got, err := s.CreateTrade(context.Background(), models.TradeCreate{TickerID: "t1", Side: models.SideBuy, Entry: 150})
	require.NoError(t, err)
	assert.Equal(t, "2", got.ID)

	trades := s.Trades()
	require.Len(t, trades, 2)
	assert.Equal(t, "2", trades[0].ID)
	assert.Equal(t, models.StatusActive, trades[0].Status)
	assert.Equal(t, "1", trades[1].ID)
	assert.Equal(t, 100.0, trades[1].Entry)
	assert.Equal(t, 2, s.Total())
}

func TestCreateTrade_InvalidNeverCallsAPI(t *testing.T) {
	api := &mockTradesAPI{
		CreateTradeFunc: func(context.Context, models.TradeCreate) (*models.TradeResponse, error) {
			t.Fatal("CreateTrade must not be called for invalid data")
			return nil, nil
		},
	}
	s := NewTradesStore(api)

	got, err := s.CreateTrade(context.Background(), models.TradeCreate{Side: models.SideBuy, Entry: 0})
	assert.Nil(t, got)
	assert.ErrorIs(t, err, models.ErrInvalid)
	assert.Empty(t, s.Trades())
	assert.False(t, s.Busy().Creating)
}

func TestUpdateTrade_ReplacesWithServerTrade(t *testing.T) {
	api := &mockTradesAPI{
		ListTradesFunc: func(context.Context) (*models.TradeList, error) {
			return &models.TradeList{Trades: []models.Trade{
				{ID: "X", Entry: 100, Score: ptr(3), Notes: ptr("keep?")},
				{ID: "Y", Entry: 20},
			}, Total: 2}, nil
		},
		UpdateTradeFunc: func(_ context.Context, id string, patch models.TradePatch) (*models.TradeResponse, error) {
			assert.Equal(t, []string{"score"}, patch.SetFields())
			return &models.TradeResponse{Trade: &models.Trade{
				ID:              id,
				Entry:           100,
				Score:           ptr(7),
				RiskRewardRatio: ptr(1.5),
			}}, nil
		},
	}
	s := seeded(t, api)

	got, outcome, err := s.UpdateTrade(context.Background(), "X", models.TradePatch{Score: models.Set(7)})
	require.NoError(t, err)
	assert.Equal(t, OutcomeReplaced, outcome)
	assert.Equal(t, 7, *got.Score)

	entry, ok := s.Trade("X")
	require.True(t, ok)
	assert.Equal(t, models.Trade{ID: "X", Entry: 100, Score: ptr(7), RiskRewardRatio: ptr(1.5)}, entry)
	assert.Nil(t, entry.Notes, "fields absent from the server trade must not survive from the old entry")
	assert.Equal(t, []string{"X", "Y"}, ids(s.Trades()))
}

func TestUpdateTrade_StaleLocalEntry(t *testing.T) {
	fetches := 0
	api := &mockTradesAPI{
		ListTradesFunc: func(context.Context) (*models.TradeList, error) {
			fetches++
			if fetches == 1 {
				return &models.TradeList{Trades: []models.Trade{{ID: "A"}}, Total: 1}, nil
			}
			return &models.TradeList{Trades: []models.Trade{{ID: "A"}, {ID: "Z", Score: ptr(9)}}, Total: 2}, nil
		},
		UpdateTradeFunc: func(_ context.Context, id string, _ models.TradePatch) (*models.TradeResponse, error) {
			return &models.TradeResponse{Trade: &models.Trade{ID: id, Score: ptr(9)}}, nil
		},
	}

	t.Run("no refetch by default", func(t *testing.T) {
		fetches = 0
		s := seeded(t, api)
		before := s.Trades()

		got, outcome, err := s.UpdateTrade(context.Background(), "Z", models.TradePatch{Score: models.Set(9)})
		require.NoError(t, err)
		assert.Equal(t, OutcomeStaleLocalEntry, outcome)
		assert.Equal(t, "Z", got.ID)
		assert.Equal(t, before, s.Trades())
		assert.Equal(t, 1, fetches)
	})

	t.Run("refetch when enabled", func(t *testing.T) {
		fetches = 0
		s := seeded(t, api, WithRefetchOnStale())

		_, outcome, err := s.UpdateTrade(context.Background(), "Z", models.TradePatch{Score: models.Set(9)})
		require.NoError(t, err)
		assert.Equal(t, OutcomeStaleLocalEntry, outcome)
		assert.Equal(t, 2, fetches)
		assert.Equal(t, []string{"A", "Z"}, ids(s.Trades()))
	})
}

func TestDeleteTrade_RemovesExactlyOne(t *testing.T) {
	srv := newFakeServer(models.Trade{ID: "1"}, models.Trade{ID: "2"}, models.Trade{ID: "3"})
	s := seeded(t, srv)

	require.NoError(t, s.DeleteTrade(context.Background(), "2"))
	assert.Equal(t, []string{"1", "3"}, ids(s.Trades()))
	assert.Equal(t, 2, s.Total())
}

func TestDeleteTrades_ExampleScenario(t *testing.T) {
	var sent []string
	api := &mockTradesAPI{
		ListTradesFunc: func(context.Context) (*models.TradeList, error) {
			return &models.TradeList{Trades: []models.Trade{{ID: "1"}, {ID: "2"}}, Total: 2}, nil
		},
		DeleteTradesFunc: func(_ context.Context, ids []string) (*models.MessageResponse, error) {
			sent = ids
			return &models.MessageResponse{Message: "2 trades deleted successfully"}, nil
		},
	}
	s := seeded(t, api)

	require.NoError(t, s.DeleteTrades(context.Background(), []string{"1", "2", "1"}))
	assert.Equal(t, []string{"1", "2"}, sent)
	assert.Empty(t, s.Trades())
	assert.Equal(t, 0, s.Total())
}

func TestDeleteTrades_EmptySelection(t *testing.T) {
	s := NewTradesStore(&mockTradesAPI{})
	assert.ErrorIs(t, s.DeleteTrades(context.Background(), nil), ErrEmptySelection)
}

func TestFailuresPreserveState(t *testing.T) {
	srv := newFakeServer(
		models.Trade{ID: "1", Entry: 10, Score: ptr(2)},
		models.Trade{ID: "2", Entry: 20, Tags: []models.Tag{{Name: "a"}}},
	)
	s := seeded(t, srv)
	before := s.Trades()
	srv.setFail(true)
	ctx := context.Background()

	got, err := s.CreateTrade(ctx, models.TradeCreate{TickerID: "t", Side: models.SideBuy, Entry: 5})
	assert.Nil(t, got)
	assert.ErrorIs(t, err, errServer)

	upd, _, err := s.UpdateTrade(ctx, "1", models.TradePatch{Score: models.Set(4)})
	assert.Nil(t, upd)
	assert.ErrorIs(t, err, errServer)

	assert.ErrorIs(t, s.DeleteTrade(ctx, "1"), errServer)
	assert.ErrorIs(t, s.DeleteTrades(ctx, []string{"1", "2"}), errServer)
	assert.ErrorIs(t, s.FetchTrades(ctx), errServer)

	assert.Equal(t, before, s.Trades())
	assert.Equal(t, 2, s.Total())
	assert.Equal(t, Busy{}, s.Busy())
}

func TestTradesSnapshotIsDetached(t *testing.T) {
	srv := newFakeServer(models.Trade{ID: "1", Score: ptr(1), Tags: []models.Tag{{Name: "a"}}})
	s := seeded(t, srv)

	snap := s.Trades()
	*snap[0].Score = 99
	snap[0].Tags[0].Name = "mutated"
	snap[0].ID = "other"

	again := s.Trades()
	assert.Equal(t, "1", again[0].ID)
	assert.Equal(t, 1, *again[0].Score)
	assert.Equal(t, "a", again[0].Tags[0].Name)
}

func TestFetchTrades_DropsDuplicateIDs(t *testing.T) {
	api := &mockTradesAPI{
		ListTradesFunc: func(context.Context) (*models.TradeList, error) {
			return &models.TradeList{Trades: []models.Trade{{ID: "1"}, {ID: "1"}, {ID: "2"}}, Total: 2}, nil
		},
	}
	s := seeded(t, api)
	assert.Equal(t, []string{"1", "2"}, ids(s.Trades()))
}

// blockingAPI parks each call until the test releases it, so the test
// decides in which order responses arrive.
type blockingAPI struct {
	*fakeServer
	started chan string
	release map[string]chan struct{}
}

func newBlockingAPI(srv *fakeServer, ops ...string) *blockingAPI {
	b := &blockingAPI{fakeServer: srv, started: make(chan string, len(ops)), release: map[string]chan struct{}{}}
	for _, op := range ops {
		b.release[op] = make(chan struct{})
	}
	return b
}

func (b *blockingAPI) wait(op string) {
	b.started <- op
	<-b.release[op]
}

func (b *blockingAPI) UpdateTrade(ctx context.Context, id string, p models.TradePatch) (*models.TradeResponse, error) {
	res, err := b.fakeServer.UpdateTrade(ctx, id, p)
	b.wait("update")
	return res, err
}

func (b *blockingAPI) DeleteTrade(ctx context.Context, id string) (*models.MessageResponse, error) {
	res, err := b.fakeServer.DeleteTrade(ctx, id)
	b.wait("delete")
	return res, err
}

func (b *blockingAPI) DeleteTrades(ctx context.Context, ids []string) (*models.MessageResponse, error) {
	res, err := b.fakeServer.DeleteTrades(ctx, ids)
	b.wait("delete")
	return res, err
}

func (b *blockingAPI) CreateTrade(ctx context.Context, d models.TradeCreate) (*models.TradeResponse, error) {
	res, err := b.fakeServer.CreateTrade(ctx, d)
	b.wait("create")
	return res, err
}

type result struct {
	outcome Outcome
	err     error
}

func TestConcurrentUpdateAndDelete(t *testing.T) {
	tests := []struct {
		name        string
		firstDone   string
		wantOutcome Outcome
	}{
		{"delete response arrives first", "delete", OutcomeStaleLocalEntry},
		{"update response arrives first", "update", OutcomeReplaced},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFakeServer(models.Trade{ID: "X", Entry: 100, Score: ptr(3)}, models.Trade{ID: "Y"})
			s := seeded(t, srv)
			api := newBlockingAPI(srv, "update", "delete")
			s.api = api
			ctx := context.Background()

			updDone := make(chan result, 1)
			delDone := make(chan error, 1)
			go func() {
				_, outcome, err := s.UpdateTrade(ctx, "X", models.TradePatch{Score: models.Set(7)})
				updDone <- result{outcome, err}
			}()
			<-api.started
			go func() { delDone <- s.DeleteTrade(ctx, "X") }()
			<-api.started

			busy := s.Busy()
			assert.True(t, busy.Updating)
			assert.True(t, busy.Deleting)
			assert.False(t, busy.Creating)

			var upd result
			if tt.firstDone == "delete" {
				close(api.release["delete"])
				require.NoError(t, <-delDone)
				close(api.release["update"])
				upd = <-updDone
			} else {
				close(api.release["update"])
				upd = <-updDone
				close(api.release["delete"])
				require.NoError(t, <-delDone)
			}

			require.NoError(t, upd.err)
			assert.Equal(t, tt.wantOutcome, upd.outcome)
			assert.Equal(t, []string{"Y"}, ids(s.Trades()))
			assert.Equal(t, 1, s.Total())
			assert.Equal(t, Busy{}, s.Busy())
		})
	}
}

func TestFetchBeforeDeleteResponseCountsOnce(t *testing.T) {
	tests := []struct {
		name   string
		delete func(s *TradesStore) error
	}{
		{"single", func(s *TradesStore) error { return s.DeleteTrade(context.Background(), "1") }},
		{"bulk", func(s *TradesStore) error { return s.DeleteTrades(context.Background(), []string{"1", "2"}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFakeServer(models.Trade{ID: "1"}, models.Trade{ID: "2"}, models.Trade{ID: "3"})
			s := seeded(t, srv)
			api := newBlockingAPI(srv, "delete")
			s.api = api

			deleted := make(chan error, 1)
			go func() { deleted <- tt.delete(s) }()
			<-api.started

			// The server has applied the delete; a refetch lands before its response.
			require.NoError(t, s.FetchTrades(context.Background()))
			fetched := ids(s.Trades())
			assert.Equal(t, len(fetched), s.Total())

			close(api.release["delete"])
			require.NoError(t, <-deleted)

			assert.Equal(t, fetched, ids(s.Trades()))
			assert.Equal(t, len(fetched), s.Total())
			srvList, err := srv.ListTrades(context.Background())
			require.NoError(t, err)
			assert.Equal(t, srvList.Total, s.Total())
		})
	}
}

func TestCreateTrade_LevelsOnOneSideReachServer(t *testing.T) {
	srv := newFakeServer()
	s := NewTradesStore(srv)

	got, err := s.CreateTrade(context.Background(), models.TradeCreate{
		TickerID: "t1", Side: models.SideBuy, Entry: 100, StopLoss: ptr(110.0), Target: ptr(120.0),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, srv.calls)
	assert.Equal(t, []string{got.ID}, ids(s.Trades()))

	_, outcome, err := s.UpdateTrade(context.Background(), got.ID, models.TradePatch{
		Entry: models.Set(130.0), StopLoss: models.Set(90.0), Target: models.Set(120.0),
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeReplaced, outcome)
	assert.Equal(t, 130.0, s.Trades()[0].Entry)
}

func TestConcurrentCreatesKeepIndependentFlags(t *testing.T) {
	srv := newFakeServer(models.Trade{ID: "1"})
	s := seeded(t, srv)
	api := newBlockingAPI(srv, "create", "delete")
	s.api = api
	ctx := context.Background()

	created := make(chan *models.Trade, 1)
	go func() {
		tr, err := s.CreateTrade(ctx, models.TradeCreate{TickerID: "t", Side: models.SideSell, Entry: 10})
		assert.NoError(t, err)
		created <- tr
	}()
	<-api.started
	deleted := make(chan error, 1)
	go func() { deleted <- s.DeleteTrade(ctx, "1") }()
	<-api.started

	assert.Equal(t, Busy{Creating: true, Deleting: true}, s.Busy())

	close(api.release["delete"])
	require.NoError(t, <-deleted)
	assert.Equal(t, Busy{Creating: true}, s.Busy())

	close(api.release["create"])
	select {
	case tr := <-created:
		assert.Equal(t, []string{tr.ID}, ids(s.Trades()))
	case <-time.After(time.Second):
		t.Fatal("create did not finish")
	}
	assert.Equal(t, 1, s.Total())
}

func TestDuplicateDeleteSecondFailureIsHarmless(t *testing.T) {
	calls := 0
	api := &mockTradesAPI{
		ListTradesFunc: func(context.Context) (*models.TradeList, error) {
			return &models.TradeList{Trades: []models.Trade{{ID: "1"}, {ID: "2"}}, Total: 2}, nil
		},
		DeleteTradeFunc: func(context.Context, string) (*models.MessageResponse, error) {
			calls++
			if calls > 1 {
				return nil, errors.New("trade not found")
			}
			return &models.MessageResponse{Message: "deleted"}, nil
		},
	}
	s := seeded(t, api)
	require.NoError(t, s.DeleteTrade(context.Background(), "1"))
	assert.Error(t, s.DeleteTrade(context.Background(), "1"))
	assert.Equal(t, []string{"2"}, ids(s.Trades()))
	assert.Equal(t, 1, s.Total())
}

func ids(trades []models.Trade) []string {
	out := make([]string, 0, len(trades))
	for _, t := range trades {
		out = append(out, t.ID)
	}
	return out
}
