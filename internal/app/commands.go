package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fr4nk3nst1ner/slackquote/internal/banner"
	"github.com/fr4nk3nst1ner/slackquote/internal/ops"
	"github.com/fr4nk3nst1ner/slackquote/internal/scheduler"
	"github.com/fr4nk3nst1ner/slackquote/pkg/slackquote"
)

const shutdownTimeout = 10 * time.Second

func (a *app) runCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Pick and post one quote now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := slackquote.Options{}
			if dryRun {
				opts.DryRun = cmd.OutOrStdout()
			}
			runner, err := a.newRunner(opts)
			if err != nil {
				return err
			}

			res, err := runner.Run(cmd.Context())
			if err != nil {
				return err
			}
			a.logger.Debug("run_result", "run_id", res.RunID, "outcome", res.Outcome)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the message instead of posting it")
	return cmd
}

func (a *app) serveCommand() *cobra.Command {
	var noBanner bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the weekly schedule and the ops endpoint until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, cmd, noBanner)
		},
	}
	cmd.Flags().BoolVar(&noBanner, "nobanner", false, "disable banner output")
	return cmd
}

func (a *app) serve(ctx context.Context, cmd *cobra.Command, noBanner bool) error {
	runner, err := a.newRunner(slackquote.Options{})
	if err != nil {
		return err
	}

	loc, err := a.cfg.Location()
	if err != nil {
		return err
	}
	job := runner.Job()
	sched, err := scheduler.New(a.cfg.Schedule.Cron, loc, func(ctx context.Context) error {
		_, err := job.Run(ctx)
		return err
	}, a.logger)
	if err != nil {
		return err
	}
	sched.RunOnStart = a.cfg.Schedule.RunOnStart

	banner.Print(cmd.OutOrStdout(), banner.Info{
		Cron:     a.cfg.Schedule.Cron,
		Timezone: loc.String(),
		NextRun:  a.nextRun(sched.Next, time.Now()),
		Listen:   a.cfg.Server.Address,
	}, noBanner)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var srv *ops.Server
	if addr := a.cfg.Server.Address; addr != "" {
		srv = ops.NewServer(addr, ops.NewRouter(job, runner.Metrics(), a.logger), a.logger)
		errCh, err := srv.Start()
		if err != nil {
			return fmt.Errorf("failed to start ops server: %w", err)
		}
		go func() {
			if err, ok := <-errCh; ok && err != nil {
				a.logger.Error("ops_server_failed", "error", err)
				cancel()
			}
		}()
	}

	schedErr := sched.Start(ctx)

	if srv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("ops_server_shutdown_failed", "error", err)
		}
	}
	return schedErr
}

// nextRun is zero when the next tick cannot be computed
func (a *app) nextRun(next func(time.Time) (time.Time, error), now time.Time) time.Time {
	t, err := next(now)
	if err != nil {
		a.logger.Warn("scheduler_nexttick_failed", "cron", a.cfg.Schedule.Cron, "error", err)
		return time.Time{}
	}
	return t
}

func (a *app) checkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the API token with auth.test",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runner, err := a.newRunner(slackquote.Options{})
			if err != nil {
				return err
			}
			who, err := runner.Check(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token OK: %s (%s token)\n", who, runner.TokenKind())
			return nil
		},
	}
}
