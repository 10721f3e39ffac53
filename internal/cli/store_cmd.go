package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexanderramin/custodian/internal/cli/formatter"
	"github.com/alexanderramin/custodian/internal/store"
	"github.com/alexanderramin/custodian/internal/store/jsonfile"
	"github.com/spf13/cobra"
)

func newStoreCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Move snapshots between backends and manage checkpoints",
	}
	cmd.AddCommand(
		newStoreExportCmd(app),
		newStoreImportCmd(app),
		newStoreDiscardCmd(app),
	)
	return cmd
}

func newStoreExportCmd(app *App) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the committed snapshot and log to a JSON directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var cl closers
			defer cl.Close()
			src, err := openBackend(app.cfg, &cl)
			if err != nil {
				return err
			}
			n, err := copySnapshot(cmd.Context(), src, jsonfile.New(dir))
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Exported snapshot and %d log entries to %s\n", n, formatter.Bold(dir))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "to", "", "destination directory")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newStoreImportCmd(app *App) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the configured backend's snapshot with a JSON directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var cl closers
			defer cl.Close()
			dst, err := openBackend(app.cfg, &cl)
			if err != nil {
				return err
			}
			n, err := copySnapshot(cmd.Context(), jsonfile.New(dir), dst)
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Imported snapshot and %d log entries from %s\n", n, formatter.Bold(dir))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "from", "", "source directory")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func newStoreDiscardCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "discard",
		Short: "Drop the temporal checkpoint so the next run starts fresh",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var cl closers
			defer cl.Close()
			backend, err := openBackend(app.cfg, &cl)
			if err != nil {
				return err
			}
			_, err = backend.LoadTemporal(cmd.Context())
			switch {
			case errors.Is(err, store.ErrNoCheckpoint):
				fmt.Fprintln(out(cmd), formatter.Dim("No checkpoint to discard."))
				return nil
			case err != nil:
				return err
			}
			if err := backend.DiscardTemporal(cmd.Context()); err != nil {
				return fmt.Errorf("discarding checkpoint: %w", err)
			}
			fmt.Fprintln(out(cmd), "Checkpoint discarded.")
			return nil
		},
	}
}

// copySnapshot writes src's committed snapshot to dst and appends src's log
// entries that dst does not have yet. It returns the number appended.
func copySnapshot(ctx context.Context, src, dst store.Backend) (int, error) {
	snap, err := src.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading source snapshot: %w", err)
	}
	if err := dst.Save(ctx, snap, false); err != nil {
		return 0, fmt.Errorf("writing snapshot: %w", err)
	}

	entries, err := src.Log(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading source log: %w", err)
	}
	existing, err := dst.Log(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading destination log: %w", err)
	}
	seen := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		seen[e.ID] = struct{}{}
	}
	n := 0
	for _, e := range entries {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		if err := dst.AppendLog(ctx, e); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
