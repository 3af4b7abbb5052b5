package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/atinyakov/tradejournal/internal/client/config"
	"github.com/atinyakov/tradejournal/internal/client/shell"
	"github.com/atinyakov/tradejournal/internal/client/store"
	"github.com/atinyakov/tradejournal/internal/logger"
)

var (
	version   string
	buildDate string
)

// newRootCmd builds the client command tree. Running it without a
// subcommand starts the interactive shell.
func newRootCmd() (*cobra.Command, error) {
	v := config.New()

	root := &cobra.Command{
		Use:           "tradejournal",
		Short:         "Trade journal client",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, v)
		},
	}
	if err := config.BindFlags(root, v); err != nil {
		return nil, err
	}

	root.AddCommand(&cobra.Command{
		Use:   "shell",
		Short: "Start the interactive shell",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, v)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show build version and date",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Trade Journal Client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		},
	})
	return root, nil
}

// runShell restores the previous session and hands the terminal to the shell.
func runShell(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	l := logger.New().WithFile(logger.FileConfig{Path: cfg.LogFile})
	if err := l.Init(cfg.LogLevel); err != nil {
		return err
	}
	defer func() { _ = l.Log.Sync() }()

	app, err := store.NewApp(cfg.StoreConfig(l.Log))
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := app.Auth.InitializeAuth(ctx)
	l.Log.Info("session restored",
		zap.String("state", sess.State.String()),
		zap.String("api_url", cfg.APIURL),
	)
	out := cmd.OutOrStdout()
	if sess.Authenticated {
		fmt.Fprintf(out, "Logged in as %s\n", sess.User.Email)
	} else if last := app.Auth.LastKnownUser(); last != nil {
		fmt.Fprintf(out, "Session expired for %s, please log in again\n", last.Email)
	}

	sh := shell.New(app.Auth, app.Trades, app.API, cmd.InOrStdin(), out, l.Log.Named("shell")).WithTelegram(app.API)
	return sh.Run(ctx)
}

func main() {
	root, err := newRootCmd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
