package cli

import (
	"fmt"

	"github.com/alexanderramin/custodian/internal/cli/formatter"
	"github.com/alexanderramin/custodian/internal/domain"
	"github.com/spf13/cobra"
)

func newLogCmd(app *App) *cobra.Command {
	var roomID int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "List room visit log entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var cl closers
			defer cl.Close()
			backend, err := openBackend(app.cfg, &cl)
			if err != nil {
				return err
			}

			var entries []*domain.LogEntry
			filter := cmd.Flags().Changed("room")
			if rl, ok := backend.(roomLogger); ok && filter {
				entries, err = rl.LogByRoom(cmd.Context(), roomID)
			} else {
				entries, err = backend.Log(cmd.Context())
			}
			if err != nil {
				return fmt.Errorf("reading log: %w", err)
			}
			if filter {
				kept := entries[:0]
				for _, e := range entries {
					if e.RoomID == roomID {
						kept = append(kept, e)
					}
				}
				entries = kept
			}
			fmt.Fprint(out(cmd), formatter.FormatLog(entries, app.now()))
			return nil
		},
	}
	cmd.Flags().IntVar(&roomID, "room", 0, "only show entries for this room id")
	return cmd
}
