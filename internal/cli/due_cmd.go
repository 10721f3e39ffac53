package cli

import (
	"fmt"
	"time"

	"github.com/alexanderramin/custodian/internal/application"
	"github.com/alexanderramin/custodian/internal/cli/formatter"
	"github.com/alexanderramin/custodian/internal/store"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

func newDueCmd(app *App) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "due",
		Short: "Show the rooms due and overdue on a date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			now := app.now()
			if date != "" {
				d, err := time.ParseInLocation(dateLayout, date, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", date)
				}
				// Keep the time of day so overdue thresholds match a run
				// started at the same hour.
				now = time.Date(d.Year(), d.Month(), d.Day(), now.Hour(), now.Minute(), now.Second(), 0, time.Local)
			}

			var cl closers
			defer cl.Close()
			backend, err := openBackend(app.cfg, &cl)
			if err != nil {
				return err
			}
			st := store.New(backend, app.logger)
			svc := application.New(application.Deps{Store: st, Logger: app.logger})

			res, err := svc.Resolve(cmd.Context(), now)
			if err != nil {
				return err
			}
			fmt.Fprint(out(cmd), formatter.FormatDue(res, st.Rooms()))
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "date to resolve (YYYY-MM-DD, default today)")
	return cmd
}
