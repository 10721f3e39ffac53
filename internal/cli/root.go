// Package cli implements the custodian command line.
package cli

import (
	"io"
	"os"
	"time"

	"github.com/alexanderramin/custodian/internal/config"
	"github.com/alexanderramin/custodian/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const serviceName = "custodian"

// App carries process-level dependencies into the commands. The zero value
// is usable; tests override the hooks.
type App struct {
	// Now returns the current time; nil uses time.Now.
	Now func() time.Time
	// Signals, when set, replaces OS signal delivery during `run`.
	Signals <-chan os.Signal

	cfg    config.Config
	logger *zap.Logger
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// NewRootCmd creates the top-level "custodian" command and registers all
// subcommands against app.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "custodian",
		Short:         "Cleaning robot scheduler and executor",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromFlags(cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, serviceName)
			if err != nil {
				return err
			}
			app.cfg = cfg
			app.logger = logger
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if app.logger != nil {
				_ = app.logger.Sync()
			}
		},
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newRunCmd(app),
		newDueCmd(app),
		newStoreCmd(app),
		newLogCmd(app),
	)
	return root
}

func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }
