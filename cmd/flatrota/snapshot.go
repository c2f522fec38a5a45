package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/flatrota/internal/config"
	"github.com/dukerupert/flatrota/internal/database"
	"github.com/dukerupert/flatrota/internal/snapshot"
	"github.com/dukerupert/flatrota/internal/store"
)

func newSnapshotCmd(loadConfig func() (config.Config, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Export or inspect offline copies of a task's periods",
	}
	cmd.AddCommand(newSnapshotExportCmd(loadConfig))
	cmd.AddCommand(newSnapshotShowCmd(loadConfig))
	return cmd
}

// passphrase prefers the flag and falls back to the configured one.
func passphrase(flag string, cfg config.Config) string {
	if flag != "" {
		return flag
	}
	return cfg.SnapshotPassphrase
}

func newSnapshotExportCmd(loadConfig func() (config.Config, error)) *cobra.Command {
	var (
		taskID int64
		out    string
		pass   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a task and its periods to a snapshot file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			db, err := database.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			snap, err := exportTask(cmd.Context(), store.New(db), taskID, time.Now())
			if err != nil {
				return err
			}
			if err := snapshot.WriteFile(out, snap, passphrase(pass, cfg)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote snapshot %s (%d periods) to %s\n", snap.ID, len(snap.Periods), out)
			return nil
		},
	}

	f := cmd.Flags()
	f.Int64Var(&taskID, "task", 0, "task id")
	f.StringVar(&out, "out", "", "output file")
	f.StringVar(&pass, "passphrase", "", "encrypt the snapshot with this passphrase")
	cmd.MarkFlagRequired("task")
	cmd.MarkFlagRequired("out")
	return cmd
}

func exportTask(ctx context.Context, stores *store.Stores, taskID int64, now time.Time) (snapshot.Snapshot, error) {
	task, err := stores.Tasks.GetByID(ctx, taskID)
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	if task == nil {
		return snapshot.Snapshot{}, fmt.Errorf("task %d not found", taskID)
	}
	periods, err := stores.Periods.ListByTask(ctx, taskID)
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	return snapshot.New(*task, periods, now), nil
}

func newSnapshotShowCmd(loadConfig func() (config.Config, error)) *cobra.Command {
	var pass string

	cmd := &cobra.Command{
		Use:   "show FILE",
		Short: "Print the contents of a snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			snap, err := snapshot.ReadFile(args[0], passphrase(pass, cfg))
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			t := snap.Task
			status := "active"
			if !t.Active {
				status = "closed"
			}
			fmt.Fprintf(w, "snapshot %s taken %s\n", snap.ID, snap.CreatedAt.Format(time.RFC3339))
			fmt.Fprintf(w, "task %d %q (%s), every %d %s from %s to %s\n\n", t.ID, t.Name, status,
				t.PeriodValue, t.PeriodUnit, t.StartDate.Format(time.DateOnly), t.EndDate.Format(time.DateOnly))
			return printPeriods(w, snap.Periods)
		},
	}
	cmd.Flags().StringVar(&pass, "passphrase", "", "passphrase the snapshot was encrypted with")
	return cmd
}
