// Package shell is the interactive command loop of the trade journal client.
// It only parses input and prints results; all state lives in the stores.
package shell

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/atinyakov/tradejournal/internal/client/store"
	"github.com/atinyakov/tradejournal/internal/models"
)

// Session is the part of the auth store the shell drives.
type Session interface {
	Login(ctx context.Context, creds models.LoginCredentials) error
	Register(ctx context.Context, creds models.RegisterCredentials) error
	SignOut(ctx context.Context)
	Session() store.Session
}

// Journal is the part of the trades store the shell drives.
type Journal interface {
	FetchTrades(ctx context.Context) error
	Trades() []models.Trade
	Trade(id string) (models.Trade, bool)
	Total() int
	CreateTrade(ctx context.Context, data models.TradeCreate) (*models.Trade, error)
	UpdateTrade(ctx context.Context, id string, patch models.TradePatch) (*models.Trade, store.Outcome, error)
	DeleteTrade(ctx context.Context, id string) error
	DeleteTrades(ctx context.Context, ids []string) error
}

// Catalog searches tickers and tags.
type Catalog interface {
	SearchTickers(ctx context.Context, q string, page, perPage int) (*models.TickerPage, error)
	SearchTags(ctx context.Context, q string, page, perPage int) (*models.TagPage, error)
}

// Telegram links the account to the Telegram bot.
type Telegram interface {
	GenerateTelegramCode(ctx context.Context) (*models.TelegramVerification, error)
	TelegramStatus(ctx context.Context) (*models.TelegramStatus, error)
	DisconnectTelegram(ctx context.Context) (*models.MessageResponse, error)
}

const helpText = `Available commands:
  help                      show this help
  login <email>             sign in
  register                  create an account
  logout                    sign out
  whoami                    show the current session
  list                      reload and list your trades
  show <id>                 print one trade
  add                       journal a new trade
  edit <id>                 change a trade (empty keeps a value, "-" clears it)
  dup <id>                  duplicate a trade
  delete <id>               delete a trade
  delete-many <id> <id>...  delete several trades at once
  tickers [query]           search tickers
  tags [query]              search tags
  telegram [link|unlink]    show, link or unlink Telegram
  exit                      leave the shell`

// Shell reads commands from in and writes results to out.
type Shell struct {
	auth     Session
	trades   Journal
	catalog  Catalog
	telegram Telegram
	log      *zap.Logger

	p      prompter
	prompt string
}

// New returns a Shell over the given collaborators.
func New(auth Session, trades Journal, catalog Catalog, in io.Reader, out io.Writer, log *zap.Logger) *Shell {
	if log == nil {
		log = zap.NewNop()
	}
	return &Shell{
		auth:    auth,
		trades:  trades,
		catalog: catalog,
		log:     log,
		p:       prompter{in: bufio.NewScanner(in), out: out},
		prompt:  "tradejournal> ",
	}
}

// WithTelegram enables the telegram command.
func (s *Shell) WithTelegram(tg Telegram) *Shell {
	s.telegram = tg
	return s
}

// Run processes commands until exit, end of input or ctx cancellation.
func (s *Shell) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := s.p.line(s.prompt)
		if errors.Is(err, errInputClosed) {
			return nil
		}
		if err != nil {
			return err
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" || args[0] == "quit" {
			s.println("Bye")
			return nil
		}
		if err := s.dispatch(ctx, args); err != nil {
			if errors.Is(err, errInputClosed) {
				return nil
			}
			s.log.Debug("command failed", zap.String("command", args[0]), zap.Error(err))
			s.printf("Error: %v\n", err)
		}
	}
}

func (s *Shell) dispatch(ctx context.Context, args []string) error {
	switch args[0] {
	case "help":
		s.println(helpText)
		return nil
	case "login":
		return s.login(ctx, args[1:])
	case "register":
		return s.register(ctx)
	case "whoami":
		s.whoami()
		return nil
	}

	if !s.auth.Session().Authenticated {
		return errors.New("please log in first")
	}
	switch args[0] {
	case "logout":
		s.auth.SignOut(ctx)
		s.println("Logged out")
	case "list":
		return s.list(ctx)
	case "show":
		return s.withID(args, s.show)
	case "add":
		return s.add(ctx)
	case "edit":
		return s.withID(args, func(id string) error { return s.edit(ctx, id) })
	case "dup":
		return s.withID(args, func(id string) error { return s.duplicate(ctx, id) })
	case "delete":
		return s.withID(args, func(id string) error { return s.delete(ctx, id) })
	case "delete-many":
		return s.deleteMany(ctx, args[1:])
	case "tickers":
		return s.tickers(ctx, strings.Join(args[1:], " "))
	case "tags":
		return s.tags(ctx, strings.Join(args[1:], " "))
	case "telegram":
		return s.telegramCmd(ctx, args[1:])
	default:
		return fmt.Errorf("unknown command %q, type 'help' for a list of commands", args[0])
	}
	return nil
}

func (s *Shell) withID(args []string, fn func(id string) error) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: %s <id>", args[0])
	}
	return fn(args[1])
}

func (s *Shell) login(ctx context.Context, args []string) error {
	var creds models.LoginCredentials
	var err error
	if len(args) > 0 {
		creds.Email = args[0]
	} else if creds.Email, err = s.p.ask("Email"); err != nil {
		return err
	}
	if creds.Password, err = s.p.ask("Password"); err != nil {
		return err
	}
	if err := s.auth.Login(ctx, creds); err != nil {
		return err
	}
	s.printf("Welcome back, %s\n", s.auth.Session().User.Name)
	return nil
}

func (s *Shell) register(ctx context.Context) error {
	var creds models.RegisterCredentials
	var err error
	if creds.Name, err = s.p.ask("Name"); err != nil {
		return err
	}
	if creds.Email, err = s.p.ask("Email"); err != nil {
		return err
	}
	if creds.Password, err = s.p.ask("Password"); err != nil {
		return err
	}
	if err := s.auth.Register(ctx, creds); err != nil {
		return err
	}
	s.printf("Account created, welcome %s\n", s.auth.Session().User.Name)
	return nil
}

func (s *Shell) whoami() {
	sess := s.auth.Session()
	if !sess.Authenticated {
		s.printf("Not logged in (%s)\n", sess.State)
		return
	}
	s.printf("%s <%s>\n", sess.User.Name, sess.User.Email)
}

func (s *Shell) list(ctx context.Context) error {
	if err := s.trades.FetchTrades(ctx); err != nil {
		return err
	}
	trades := s.trades.Trades()
	if len(trades) == 0 {
		s.println("No trades yet. Use 'add' to journal one.")
		return nil
	}
	w := tabwriter.NewWriter(s.p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSYMBOL\tSIDE\tENTRY\tSTOP\tTARGET\tR:R\tSTATUS\tTAGS")
	for _, t := range trades {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, symbolOf(t), t.Side, formatFloat(&t.Entry), formatFloat(t.StopLoss),
			formatFloat(t.Target), formatFloat(t.RiskRewardRatio), t.Status,
			strings.Join(t.TagNames(), ","))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	s.printf("Total: %d\n", s.trades.Total())
	return nil
}

func symbolOf(t models.Trade) string {
	if t.Symbol != "" {
		return t.Symbol
	}
	return t.Ticker.Symbol
}

func (s *Shell) show(id string) error {
	t, ok := s.trades.Trade(id)
	if !ok {
		return fmt.Errorf("trade %s not found, run 'list' to reload", id)
	}
	b, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	s.println(string(b))
	return nil
}

// resolveTicker picks the ticker whose symbol matches query exactly, or the
// only search result when there is just one.
func (s *Shell) resolveTicker(ctx context.Context, query string) (models.Ticker, error) {
	if query == "" {
		return models.Ticker{}, errors.New("ticker is required")
	}
	page, err := s.catalog.SearchTickers(ctx, query, 1, 0)
	if err != nil {
		return models.Ticker{}, err
	}
	for _, tk := range page.Tickers {
		if strings.EqualFold(tk.Symbol, query) {
			return tk, nil
		}
	}
	switch len(page.Tickers) {
	case 0:
		return models.Ticker{}, fmt.Errorf("no ticker matches %q", query)
	case 1:
		return page.Tickers[0], nil
	}
	symbols := make([]string, len(page.Tickers))
	for i, tk := range page.Tickers {
		symbols[i] = tk.Symbol
	}
	return models.Ticker{}, fmt.Errorf("%q is ambiguous: %s", query, strings.Join(symbols, ", "))
}

func (s *Shell) add(ctx context.Context) error {
	query, err := s.p.ask("Ticker symbol")
	if err != nil {
		return err
	}
	ticker, err := s.resolveTicker(ctx, query)
	if err != nil {
		return err
	}
	data, err := s.p.createForm(ticker.ID)
	if err != nil {
		return err
	}
	created, err := s.trades.CreateTrade(ctx, data)
	if err != nil {
		return err
	}
	s.printf("Trade %s created\n", created.ID)
	return nil
}

func (s *Shell) edit(ctx context.Context, id string) error {
	current, ok := s.trades.Trade(id)
	if !ok {
		return fmt.Errorf("trade %s not found, run 'list' to reload", id)
	}
	patch, err := s.p.patchForm(current)
	if err != nil {
		return err
	}
	if patch.IsEmpty() {
		s.println("Nothing to change")
		return nil
	}
	_, outcome, err := s.trades.UpdateTrade(ctx, id, patch)
	if err != nil {
		return err
	}
	if outcome == store.OutcomeStaleLocalEntry {
		s.printf("Trade %s updated on the server but is no longer in the local list; run 'list' to reload\n", id)
		return nil
	}
	s.printf("Trade %s updated\n", id)
	return nil
}

func (s *Shell) duplicate(ctx context.Context, id string) error {
	current, ok := s.trades.Trade(id)
	if !ok {
		return fmt.Errorf("trade %s not found, run 'list' to reload", id)
	}
	created, err := s.trades.CreateTrade(ctx, models.CreateFromTrade(current))
	if err != nil {
		return err
	}
	s.printf("Trade %s duplicated as %s\n", id, created.ID)
	return nil
}

func (s *Shell) delete(ctx context.Context, id string) error {
	if err := s.trades.DeleteTrade(ctx, id); err != nil {
		return err
	}
	s.printf("Trade %s deleted\n", id)
	return nil
}

func (s *Shell) deleteMany(ctx context.Context, ids []string) error {
	if err := s.trades.DeleteTrades(ctx, ids); err != nil {
		return err
	}
	s.printf("Deleted %d trade(s)\n", len(ids))
	return nil
}

func (s *Shell) tickers(ctx context.Context, query string) error {
	page, err := s.catalog.SearchTickers(ctx, query, 1, 0)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(s.p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tEXCHANGE\tNAME\tLAST")
	for _, tk := range page.Tickers {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", tk.Symbol, tk.Exchange, tk.Name, formatFloat(&tk.LastPrice))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	s.printf("Showing %d of %d\n", len(page.Tickers), page.Total)
	return nil
}

func (s *Shell) tags(ctx context.Context, query string) error {
	page, err := s.catalog.SearchTags(ctx, query, 1, 0)
	if err != nil {
		return err
	}
	if len(page.Tags) == 0 {
		s.println("No tags found")
		return nil
	}
	for _, tag := range page.Tags {
		s.println(tag.Name)
	}
	return nil
}

func (s *Shell) telegramCmd(ctx context.Context, args []string) error {
	if s.telegram == nil {
		return errors.New("telegram linking is not available")
	}
	action := "status"
	if len(args) > 0 {
		action = args[0]
	}
	switch action {
	case "status":
		st, err := s.telegram.TelegramStatus(ctx)
		if err != nil {
			return err
		}
		if !st.Connected {
			s.println("Telegram is not connected, run 'telegram link' to connect it")
			return nil
		}
		name := "unknown"
		if st.Username != nil {
			name = "@" + *st.Username
		}
		s.printf("Telegram connected as %s\n", name)
	case "link":
		v, err := s.telegram.GenerateTelegramCode(ctx)
		if err != nil {
			return err
		}
		s.printf("Send %s to @%s before %s\n", v.VerificationCode, v.BotUsername, v.ExpiresAt.Local().Format("15:04"))
	case "unlink":
		res, err := s.telegram.DisconnectTelegram(ctx)
		if err != nil {
			return err
		}
		s.println(res.Message)
	default:
		return errors.New("usage: telegram [status|link|unlink]")
	}
	return nil
}

func (s *Shell) println(msg string) {
	fmt.Fprintln(s.p.out, msg)
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.p.out, format, args...)
}
