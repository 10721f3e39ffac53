package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/alexanderramin/custodian/internal/application"
	"github.com/alexanderramin/custodian/internal/behavior"
	"github.com/alexanderramin/custodian/internal/cleaning"
	"github.com/alexanderramin/custodian/internal/cli/formatter"
	"github.com/alexanderramin/custodian/internal/config"
	"github.com/alexanderramin/custodian/internal/gateway"
	"github.com/alexanderramin/custodian/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd(app *App) *cobra.Command {
	var simulate bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Clean today's due and overdue rooms",
		Long: `Run resolves today's rooms and cleans them: dry due rooms, wet due rooms,
then overdue rooms. Progress is checkpointed after every room.

SIGINT or SIGTERM cancels the run (a second one aborts immediately).
SIGUSR1 pauses and SIGUSR2 resumes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := app.cfg
			if simulate {
				cfg.Gateway.Mode = config.GatewaySim
				if !cmd.Flags().Changed(config.FlagFeed) {
					cfg.Detection.Feed = config.FeedSim
				}
			}
			return app.run(cmd, cfg)
		},
	}
	cmd.Flags().BoolVar(&simulate, "simulate", false, "use the in-process robot simulator")
	return cmd
}

func (a *App) run(cmd *cobra.Command, cfg config.Config) error {
	var cl closers
	defer func() {
		if err := cl.Close(); err != nil {
			a.logger.Warn("closing resources", zap.Error(err))
		}
	}()

	backend, err := openBackend(cfg, &cl)
	if err != nil {
		return err
	}
	gw, sim := newGateway(cfg, a.logger)
	feed, err := newFeed(cfg, sim, a.logger, &cl)
	if err != nil {
		return err
	}

	svc := application.New(application.Deps{
		Store:    store.New(backend, a.logger),
		Gateway:  gateway.NewCaller(gw, cfg.Gateway.Retries, a.logger),
		Feed:     feed,
		Observer: newObserver(cfg, a.logger, &cl),
		Logger:   a.logger,
		Cleaning: cleaning.Config{
			PollInterval: cfg.PollInterval,
			Policy:       cfg.Policy(),
			Priority:     cfg.Priority(),
		},
		Clock: a.now,
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	stop := a.watchSignals(ctx, svc.Signal(), cancel)
	defer stop()

	report, err := svc.Run(ctx, application.RunRequest{})
	if report != nil {
		fmt.Fprint(out(cmd), formatter.FormatRunReport(report))
	}
	if errors.Is(err, behavior.ErrCancelled) {
		fmt.Fprintln(out(cmd), formatter.Dim("Run cancelled; progress is checkpointed and the next run resumes it."))
		return nil
	}
	return err
}

// watchSignals maps process signals onto the run's behavior signal until
// ctx ends. The returned func stops delivery.
func (a *App) watchSignals(ctx context.Context, sig *behavior.Signal, abort context.CancelFunc) func() {
	ch := a.Signals
	stop := func() {}
	if ch == nil {
		c := make(chan os.Signal, 4)
		signal.Notify(c, runSignals...)
		ch = c
		stop = func() { signal.Stop(c) }
	}

	go func() {
		cancelled := false
		for {
			select {
			case <-ctx.Done():
				return
			case s, open := <-ch:
				if !open {
					return
				}
				level, ok := interruptLevel(s)
				if !ok {
					continue
				}
				a.logger.Info("signal received", zap.Stringer("signal", s), zap.Stringer("level", level))
				if level == behavior.LevelCancel {
					if cancelled {
						abort()
						return
					}
					cancelled = true
				}
				sig.Set(level)
			}
		}
	}()
	return stop
}
