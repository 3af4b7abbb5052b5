package models

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"go.uber.org/multierr"
)

const (
	// MinPrice is the smallest accepted entry, stop-loss or target price.
	MinPrice = 0.01
	// MaxNotesLength is the maximum length of trade notes in runes.
	MaxNotesLength = 1000
	// MinScore is the smallest accepted score.
	MinScore = 1
	// MinPasswordLength is enforced on registration.
	MinPasswordLength = 8
)

// ErrInvalid matches every validation failure produced by this package.
var ErrInvalid = errors.New("invalid input")

// FieldError describes one rejected field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is makes every FieldError match ErrInvalid.
func (e *FieldError) Is(target error) bool {
	return target == ErrInvalid
}

// FieldErrors flattens a validation error into its field errors.
func FieldErrors(err error) []*FieldError {
	var out []*FieldError
	for _, e := range multierr.Errors(err) {
		var fe *FieldError
		if errors.As(e, &fe) {
			out = append(out, fe)
		}
	}
	return out
}

func fieldErr(field, format string, args ...any) error {
	return &FieldError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ImpliedSide returns the side implied by the ordering of stop-loss, entry and
// target. The second result is false when the levels are not on opposite
// sides of the entry.
func ImpliedSide(entry, stopLoss, target float64) (Side, bool) {
	switch {
	case stopLoss < entry && entry < target:
		return SideBuy, true
	case target < entry && entry < stopLoss:
		return SideSell, true
	}
	return "", false
}

func checkPrice(field string, v float64) error {
	if v < MinPrice {
		return fieldErr(field, "must be greater than 0")
	}
	return nil
}

func checkNotes(notes string) error {
	if utf8.RuneCountInString(notes) > MaxNotesLength {
		return fieldErr("notes", "must be less than %d characters", MaxNotesLength)
	}
	return nil
}

func checkTags(tags []TagInput) error {
	var err error
	for i, t := range tags {
		if strings.TrimSpace(t.Name) == "" {
			err = multierr.Append(err, fieldErr(fmt.Sprintf("tags[%d].name", i), "tag name is required"))
		}
	}
	return err
}

// Validate checks a create payload before it is submitted or stored.
func (c TradeCreate) Validate() error {
	var err error
	if strings.TrimSpace(c.TickerID) == "" {
		err = multierr.Append(err, fieldErr("ticker_id", "please select a ticker"))
	}
	if !c.Side.Valid() {
		err = multierr.Append(err, fieldErr("side", "must be BUY or SELL"))
	}
	err = multierr.Append(err, checkPrice("entry", c.Entry))
	if c.StopLoss != nil {
		err = multierr.Append(err, checkPrice("stoploss", *c.StopLoss))
	}
	if c.Target != nil {
		err = multierr.Append(err, checkPrice("target", *c.Target))
	}
	if c.Timeframe != nil && !c.Timeframe.Valid() {
		err = multierr.Append(err, fieldErr("timeframe", "unknown timeframe %q", *c.Timeframe))
	}
	if c.Notes != nil {
		err = multierr.Append(err, checkNotes(*c.Notes))
	}
	if c.Score != nil && *c.Score < MinScore {
		err = multierr.Append(err, fieldErr("score", "must be at least %d", MinScore))
	}
	err = multierr.Append(err, checkTags(c.Tags))
	return err
}

// Validate checks each set field of a patch. Required fields cannot be
// cleared.
func (p TradePatch) Validate() error {
	if p.IsEmpty() {
		return fieldErr("patch", "no fields to update")
	}
	var err error
	if p.TickerID.IsNull() {
		err = multierr.Append(err, fieldErr("ticker_id", "cannot be cleared"))
	} else if v, ok := p.TickerID.Get(); ok && strings.TrimSpace(v) == "" {
		err = multierr.Append(err, fieldErr("ticker_id", "please select a ticker"))
	}
	if p.Side.IsNull() {
		err = multierr.Append(err, fieldErr("side", "cannot be cleared"))
	} else if v, ok := p.Side.Get(); ok && !v.Valid() {
		err = multierr.Append(err, fieldErr("side", "must be BUY or SELL"))
	}
	if v, ok := p.Type.Get(); ok && !v.Valid() {
		err = multierr.Append(err, fieldErr("type", "unknown trade type %q", v))
	}
	if p.Entry.IsNull() {
		err = multierr.Append(err, fieldErr("entry", "cannot be cleared"))
	} else if v, ok := p.Entry.Get(); ok {
		err = multierr.Append(err, checkPrice("entry", v))
	}
	if v, ok := p.StopLoss.Get(); ok {
		err = multierr.Append(err, checkPrice("stoploss", v))
	}
	if v, ok := p.Target.Get(); ok {
		err = multierr.Append(err, checkPrice("target", v))
	}
	if v, ok := p.Timeframe.Get(); ok && !v.Valid() {
		err = multierr.Append(err, fieldErr("timeframe", "unknown timeframe %q", v))
	}
	if v, ok := p.Notes.Get(); ok {
		err = multierr.Append(err, checkNotes(v))
	}
	if v, ok := p.Score.Get(); ok && v < MinScore {
		err = multierr.Append(err, fieldErr("score", "must be at least %d", MinScore))
	}
	if v, ok := p.Tags.Get(); ok {
		err = multierr.Append(err, checkTags(v))
	}
	return err
}

// Validate checks a merged trade before it is stored.
func (t Trade) Validate() error {
	var err error
	if !t.Side.Valid() {
		err = multierr.Append(err, fieldErr("side", "must be BUY or SELL"))
	}
	err = multierr.Append(err, checkPrice("entry", t.Entry))
	if t.StopLoss != nil {
		err = multierr.Append(err, checkPrice("stoploss", *t.StopLoss))
	}
	if t.Target != nil {
		err = multierr.Append(err, checkPrice("target", *t.Target))
	}
	return err
}

func checkEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return fieldErr("email", "must be a valid email address")
	}
	return nil
}

// Validate checks login credentials.
func (c LoginCredentials) Validate() error {
	err := checkEmail(c.Email)
	if c.Password == "" {
		err = multierr.Append(err, fieldErr("password", "is required"))
	}
	return err
}

// Validate checks registration credentials.
func (c RegisterCredentials) Validate() error {
	var err error
	if strings.TrimSpace(c.Name) == "" {
		err = multierr.Append(err, fieldErr("name", "is required"))
	}
	err = multierr.Append(err, checkEmail(c.Email))
	if utf8.RuneCountInString(c.Password) < MinPasswordLength {
		err = multierr.Append(err, fieldErr("password", "must be at least %d characters", MinPasswordLength))
	}
	return err
}
