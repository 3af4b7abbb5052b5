package models

import (
	"encoding/json"
	"time"
)

// TradeCreate is the payload of POST /trades.
type TradeCreate struct {
	TickerID  string     `json:"ticker_id"`
	Side      Side       `json:"side"`
	Entry     float64    `json:"entry"`
	StopLoss  *float64   `json:"stoploss,omitempty"`
	Target    *float64   `json:"target,omitempty"`
	Timeframe *Timeframe `json:"timeframe,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
	Score     *int       `json:"score,omitempty"`
	EntryX    *time.Time `json:"entry_x,omitempty"`
	StopLossX *time.Time `json:"stoploss_x,omitempty"`
	TargetX   *time.Time `json:"target_x,omitempty"`
	Tags      []TagInput `json:"tags,omitempty"`
}

// CreateFromTrade builds a create payload that duplicates the user-editable
// fields of an existing trade.
func CreateFromTrade(t Trade) TradeCreate {
	c := t.Clone()
	req := TradeCreate{
		TickerID:  c.Ticker.ID,
		Side:      c.Side,
		Entry:     c.Entry,
		StopLoss:  c.StopLoss,
		Target:    c.Target,
		Timeframe: c.Timeframe,
		Notes:     c.Notes,
		Score:     c.Score,
		EntryX:    c.EntryX,
		StopLossX: c.StopLossX,
		TargetX:   c.TargetX,
	}
	for _, name := range c.TagNames() {
		req.Tags = append(req.Tags, TagInput{Name: name})
	}
	return req
}

// TradePatch is the payload of PUT /trades/{id}. Only set fields are sent and
// only set fields change on the server.
type TradePatch struct {
	TickerID  Field[string]     `json:"ticker_id"`
	Side      Field[Side]       `json:"side"`
	Type      Field[TradeType]  `json:"type"`
	Entry     Field[float64]    `json:"entry"`
	StopLoss  Field[float64]    `json:"stoploss"`
	Target    Field[float64]    `json:"target"`
	Timeframe Field[Timeframe]  `json:"timeframe"`
	Notes     Field[string]     `json:"notes"`
	Score     Field[int]        `json:"score"`
	EntryX    Field[time.Time]  `json:"entry_x"`
	StopLossX Field[time.Time]  `json:"stoploss_x"`
	TargetX   Field[time.Time]  `json:"target_x"`
	Tags      Field[[]TagInput] `json:"tags"`
}

type patchField interface {
	IsSet() bool
	IsNull() bool
	json.Marshaler
}

func (p TradePatch) fields() []struct {
	name  string
	value patchField
} {
	return []struct {
		name  string
		value patchField
	}{
		{"ticker_id", p.TickerID},
		{"side", p.Side},
		{"type", p.Type},
		{"entry", p.Entry},
		{"stoploss", p.StopLoss},
		{"target", p.Target},
		{"timeframe", p.Timeframe},
		{"notes", p.Notes},
		{"score", p.Score},
		{"entry_x", p.EntryX},
		{"stoploss_x", p.StopLossX},
		{"target_x", p.TargetX},
		{"tags", p.Tags},
	}
}

// SetFields returns the JSON names of the provided fields in declaration order.
func (p TradePatch) SetFields() []string {
	var names []string
	for _, f := range p.fields() {
		if f.value.IsSet() {
			names = append(names, f.name)
		}
	}
	return names
}

// IsEmpty reports whether no field is provided.
func (p TradePatch) IsEmpty() bool {
	return len(p.SetFields()) == 0
}

// MarshalJSON emits only the provided fields.
func (p TradePatch) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.Marshaler)
	for _, f := range p.fields() {
		if f.value.IsSet() {
			out[f.name] = f.value
		}
	}
	return json.Marshal(out)
}

// Apply writes the patch onto t. Derived values are not recomputed here.
func (p TradePatch) Apply(t *Trade) {
	if v, ok := p.Side.Get(); ok {
		t.Side = v
	}
	if v, ok := p.Entry.Get(); ok {
		t.Entry = v
	}
	p.Type.Apply(&t.Type)
	p.StopLoss.Apply(&t.StopLoss)
	p.Target.Apply(&t.Target)
	p.Timeframe.Apply(&t.Timeframe)
	p.Notes.Apply(&t.Notes)
	p.Score.Apply(&t.Score)
	p.EntryX.Apply(&t.EntryX)
	p.StopLossX.Apply(&t.StopLossX)
	p.TargetX.Apply(&t.TargetX)
	if p.Tags.IsSet() {
		names, _ := p.Tags.Get()
		t.Tags = make([]Tag, 0, len(names))
		for _, n := range names {
			t.Tags = append(t.Tags, Tag{Name: n.Name})
		}
	}
}

// TradeList is the response of GET /trades.
type TradeList struct {
	Trades []Trade `json:"trades"`
	Total  int     `json:"total"`
}

// TradeResponse is the response of POST /trades, GET and PUT /trades/{id}.
type TradeResponse struct {
	Trade   *Trade `json:"trade"`
	Message string `json:"message,omitempty"`
}

// MessageResponse is returned by endpoints without a resource body.
type MessageResponse struct {
	Message string `json:"message"`
}

// DeleteTradesRequest is the body of DELETE /trades/delete-multiple.
type DeleteTradesRequest struct {
	IDs []string `json:"ids"`
}

// LoginCredentials is the body of POST /auth/login.
type LoginCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterCredentials is the body of POST /auth/register.
type RegisterCredentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by login and registration.
type AuthResponse struct {
	Message      string `json:"message,omitempty"`
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RefreshResponse is returned by POST /auth/refresh.
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	User        *User  `json:"user"`
}

// UserResponse is returned by GET /auth/me.
type UserResponse struct {
	User *User `json:"user"`
}

// TickerPage is a page of ticker search results.
type TickerPage struct {
	Tickers []Ticker `json:"tickers"`
	Total   int      `json:"total"`
	Page    int      `json:"page"`
	PerPage int      `json:"per_page"`
}

// TagPage is a page of tag search results.
type TagPage struct {
	Tags    []Tag `json:"tags"`
	Total   int   `json:"total"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}
