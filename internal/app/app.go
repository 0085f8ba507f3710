package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/fr4nk3nst1ner/slackquote/internal/banner"
	"github.com/fr4nk3nst1ner/slackquote/internal/config"
	"github.com/fr4nk3nst1ner/slackquote/internal/logger"
	"github.com/fr4nk3nst1ner/slackquote/pkg/slackquote"
)

// app carries state shared by the subcommands once flags are parsed
type app struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCommand builds the slackquote command tree
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "slackquote",
		Short: "Post a random pinned Slack message as the quote of the week",
		Long: `slackquote picks a random channel, a random pinned message in it and
posts it with its author to an incoming webhook. Run it once with "run"
or keep it on a weekly schedule with "serve".`,
		Version:           banner.Version,
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file path (YAML)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(a.runCommand(), a.serveCommand(), a.checkCommand())
	return root
}

// Execute is called by main.main
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) load(cmd *cobra.Command, _ []string) error {
	// .env is optional
	_ = godotenv.Load(".env")

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}

	l, err := logger.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	slog.SetDefault(l)

	a.cfg = cfg
	a.logger = l
	return nil
}

func (a *app) newRunner(opts slackquote.Options) (*slackquote.Runner, error) {
	opts.Token = a.cfg.Token
	opts.WebhookURL = a.cfg.WebhookURL
	opts.ProxyURL = a.cfg.Slack.ProxyURL
	opts.BaseURL = a.cfg.Slack.BaseURL
	opts.Timeout = a.cfg.Slack.Timeout.Duration()
	opts.Logger = a.logger
	return slackquote.New(opts)
}
