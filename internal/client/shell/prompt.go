package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/atinyakov/tradejournal/internal/models"
)

// clearValue is the answer that removes an optional value while editing.
const clearValue = "-"

var errInputClosed = errors.New("input closed")

// prompter asks questions on out and reads one line per answer.
type prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func (p *prompter) ask(label string) (string, error) {
	return p.line(label + ": ")
}

// line prints prompt as is and reads the next line of input.
func (p *prompter) line(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", errInputClosed
	}
	return strings.TrimSpace(p.in.Text()), nil
}

func parsePrice(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return v, nil
}

func parseScore(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a whole number", s)
	}
	return v, nil
}

func parseSide(s string) (models.Side, error) {
	side := models.Side(strings.ToUpper(s))
	if !side.Valid() {
		return "", fmt.Errorf("side must be BUY or SELL, got %q", s)
	}
	return side, nil
}

func parseTimeframe(s string) (models.Timeframe, error) {
	tf := models.Timeframe(s)
	if !tf.Valid() {
		return "", fmt.Errorf("unknown timeframe %q (use one of %s)", s, timeframeList())
	}
	return tf, nil
}

func parseTags(s string) ([]models.TagInput, error) {
	var tags []models.TagInput
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			tags = append(tags, models.TagInput{Name: name})
		}
	}
	return tags, nil
}

func parseText(s string) (string, error) { return s, nil }

func timeframeList() string {
	names := make([]string, len(models.Timeframes))
	for i, tf := range models.Timeframes {
		names[i] = string(tf)
	}
	return strings.Join(names, " ")
}

// optional parses a non-empty answer and returns nil for an empty one.
func optional[T any](s string, parse func(string) (T, error)) (*T, error) {
	if s == "" {
		return nil, nil
	}
	v, err := parse(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// createForm asks for the fields of a new trade on the given ticker. An empty
// side is inferred from the stop-loss and target levels.
func (p *prompter) createForm(tickerID string) (models.TradeCreate, error) {
	data := models.TradeCreate{TickerID: tickerID}

	answer, err := p.ask("Entry price")
	if err != nil {
		return data, err
	}
	if data.Entry, err = parsePrice(answer); err != nil {
		return data, err
	}

	if answer, err = p.ask("Stop loss (optional)"); err != nil {
		return data, err
	}
	if data.StopLoss, err = optional(answer, parsePrice); err != nil {
		return data, err
	}

	if answer, err = p.ask("Target (optional)"); err != nil {
		return data, err
	}
	if data.Target, err = optional(answer, parsePrice); err != nil {
		return data, err
	}

	if answer, err = p.ask("Side (BUY/SELL, empty to infer)"); err != nil {
		return data, err
	}
	if answer == "" {
		if data.StopLoss == nil || data.Target == nil {
			return data, errors.New("side is required unless both stop loss and target are given")
		}
		side, ok := models.ImpliedSide(data.Entry, *data.StopLoss, *data.Target)
		if !ok {
			return data, errors.New("cannot infer side: stop loss and target must lie on opposite sides of entry")
		}
		data.Side = side
	} else if data.Side, err = parseSide(answer); err != nil {
		return data, err
	}

	if answer, err = p.ask("Timeframe (" + timeframeList() + ", optional)"); err != nil {
		return data, err
	}
	if data.Timeframe, err = optional(answer, parseTimeframe); err != nil {
		return data, err
	}

	if answer, err = p.ask("Score (optional)"); err != nil {
		return data, err
	}
	if data.Score, err = optional(answer, parseScore); err != nil {
		return data, err
	}

	if answer, err = p.ask("Notes (optional)"); err != nil {
		return data, err
	}
	data.Notes, _ = optional(answer, parseText)

	if answer, err = p.ask("Tags (comma separated, optional)"); err != nil {
		return data, err
	}
	data.Tags, _ = parseTags(answer)

	return data, nil
}

// editField asks for a new value, showing the current one. An empty answer
// keeps the value; "-" clears it when clearable.
func editField[T any](p *prompter, label, current string, clearable bool, parse func(string) (T, error)) (models.Field[T], error) {
	answer, err := p.ask(fmt.Sprintf("%s [%s]", label, current))
	if err != nil {
		return models.Field[T]{}, err
	}
	switch {
	case answer == "":
		return models.Field[T]{}, nil
	case answer == clearValue && clearable:
		return models.Null[T](), nil
	case answer == clearValue:
		return models.Field[T]{}, fmt.Errorf("%s cannot be cleared", strings.ToLower(label))
	}
	v, err := parse(answer)
	if err != nil {
		return models.Field[T]{}, err
	}
	return models.Set(v), nil
}

// patchForm asks for changes to t and returns a patch holding only the
// fields the user touched.
func (p *prompter) patchForm(t models.Trade) (models.TradePatch, error) {
	var (
		patch models.TradePatch
		err   error
	)
	if patch.Side, err = editField(p, "Side", string(t.Side), false, parseSide); err != nil {
		return patch, err
	}
	if patch.Entry, err = editField(p, "Entry price", formatFloat(&t.Entry), false, parsePrice); err != nil {
		return patch, err
	}
	if patch.StopLoss, err = editField(p, "Stop loss", formatFloat(t.StopLoss), true, parsePrice); err != nil {
		return patch, err
	}
	if patch.Target, err = editField(p, "Target", formatFloat(t.Target), true, parsePrice); err != nil {
		return patch, err
	}
	if patch.Timeframe, err = editField(p, "Timeframe", derefString(t.Timeframe), true, parseTimeframe); err != nil {
		return patch, err
	}
	if patch.Score, err = editField(p, "Score", formatInt(t.Score), true, parseScore); err != nil {
		return patch, err
	}
	if patch.Notes, err = editField(p, "Notes", derefString(t.Notes), true, parseText); err != nil {
		return patch, err
	}
	if patch.Tags, err = editField(p, "Tags", strings.Join(t.TagNames(), ", "), true, parseTags); err != nil {
		return patch, err
	}
	return patch, nil
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func derefString[S ~string](v *S) string {
	if v == nil {
		return ""
	}
	return string(*v)
}
