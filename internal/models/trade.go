package models

import (
	"slices"
	"time"
)

// Side is the direction of a trade.
type Side string

const (
	// SideBuy is a long trade.
	SideBuy Side = "BUY"
	// SideSell is a short trade.
	SideSell Side = "SELL"
)

// Valid reports whether s is a known side.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// TradeStatus is the server-assigned lifecycle state of a trade.
type TradeStatus string

const (
	StatusActive   TradeStatus = "Active"
	StatusEntry    TradeStatus = "Entry"
	StatusStopLoss TradeStatus = "Stop Loss"
	StatusTarget   TradeStatus = "Target"
)

// TradeType describes how the entry level is expected to be reached.
type TradeType string

const (
	TypeCrossingAbove TradeType = "Crossing Above"
	TypeCrossingBelow TradeType = "Crossing Below"
)

// Valid reports whether t is a known trade type.
func (t TradeType) Valid() bool {
	return t == TypeCrossingAbove || t == TypeCrossingBelow
}

// Timeframe is the chart bucket a trade idea was taken on.
type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe1h  Timeframe = "1h"
	Timeframe1D  Timeframe = "1D"
	Timeframe1W  Timeframe = "1W"
	Timeframe1M  Timeframe = "1M"
)

// Timeframes lists every accepted timeframe bucket in ascending order.
var Timeframes = []Timeframe{
	Timeframe1m, Timeframe5m, Timeframe15m, Timeframe1h, Timeframe1D, Timeframe1W, Timeframe1M,
}

// Valid reports whether tf is one of Timeframes.
func (tf Timeframe) Valid() bool {
	return slices.Contains(Timeframes, tf)
}

// Trade is one journaled trade idea as returned by the server.
type Trade struct {
	ID        string      `json:"id"`
	Symbol    string      `json:"symbol"`
	LastPrice float64     `json:"last_price"`
	Status    TradeStatus `json:"status"`
	Side      Side        `json:"side"`
	Type      *TradeType  `json:"type,omitempty"`
	Notes     *string     `json:"notes,omitempty"`

	Entry     float64    `json:"entry"`
	StopLoss  *float64   `json:"stoploss,omitempty"`
	Target    *float64   `json:"target,omitempty"`
	Timeframe *Timeframe `json:"timeframe,omitempty"`
	Score     *int       `json:"score,omitempty"`

	// User-set alert times for each level.
	EntryX    *time.Time `json:"entry_x,omitempty"`
	StopLossX *time.Time `json:"stoploss_x,omitempty"`
	TargetX   *time.Time `json:"target_x,omitempty"`

	// Times at which each level was hit; nil means it has not happened yet.
	EntryAt    *time.Time `json:"entry_at,omitempty"`
	StopLossAt *time.Time `json:"stoploss_at,omitempty"`
	TargetAt   *time.Time `json:"target_at,omitempty"`

	CreatedAt       time.Time  `json:"created_at"`
	EditedAt        *time.Time `json:"edited_at,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
	StatusUpdatedAt *time.Time `json:"status_updated_at,omitempty"`

	Ticker Ticker `json:"ticker"`

	RiskRewardRatio *float64 `json:"risk_reward_ratio,omitempty"`
	RiskPerUnit     *float64 `json:"risk_per_unit,omitempty"`
	RewardPerUnit   *float64 `json:"reward_per_unit,omitempty"`

	Tags []Tag `json:"tags"`
}

// Clone returns a deep copy of t so callers can never alias another holder's data.
func (t Trade) Clone() Trade {
	c := t
	c.Type = clonePtr(t.Type)
	c.Notes = clonePtr(t.Notes)
	c.StopLoss = clonePtr(t.StopLoss)
	c.Target = clonePtr(t.Target)
	c.Timeframe = clonePtr(t.Timeframe)
	c.Score = clonePtr(t.Score)
	c.EntryX = clonePtr(t.EntryX)
	c.StopLossX = clonePtr(t.StopLossX)
	c.TargetX = clonePtr(t.TargetX)
	c.EntryAt = clonePtr(t.EntryAt)
	c.StopLossAt = clonePtr(t.StopLossAt)
	c.TargetAt = clonePtr(t.TargetAt)
	c.EditedAt = clonePtr(t.EditedAt)
	c.StatusUpdatedAt = clonePtr(t.StatusUpdatedAt)
	c.RiskRewardRatio = clonePtr(t.RiskRewardRatio)
	c.RiskPerUnit = clonePtr(t.RiskPerUnit)
	c.RewardPerUnit = clonePtr(t.RewardPerUnit)
	if t.Tags != nil {
		c.Tags = slices.Clone(t.Tags)
	}
	return c
}

// TagNames returns the names of the trade's tags in order.
func (t Trade) TagNames() []string {
	names := make([]string, 0, len(t.Tags))
	for _, tag := range t.Tags {
		names = append(names, tag.Name)
	}
	return names
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
