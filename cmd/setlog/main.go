package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/setlog/internal/config"
	"github.com/claude/setlog/internal/models"
	"github.com/claude/setlog/internal/storage"
	"github.com/claude/setlog/internal/workout"
	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries what every subcommand needs after flags are parsed.
type app struct {
	configPath string
	date       string

	cfg *config.Config
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "setlog",
		Short:         "Log workouts and tick off their sets",
		Version:       Version,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			// stdout belongs to the MCP stdio transport, so logs go to stderr.
			a.log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to config file (defaults apply when empty)")
	root.PersistentFlags().StringVar(&a.date, "date", "", "day to work on, YYYY-MM-DD (default today)")

	root.AddCommand(
		newServeCmd(a),
		newMCPCmd(a),
		newMigrateCmd(a),
		newAddCmd(a),
		newListCmd(a),
		newToggleCmd(a),
		newDeleteCmd(a),
	)
	return root
}

func (a *app) selectedDate() (models.Date, error) {
	if a.date == "" {
		return models.Today(), nil
	}
	return models.ParseDate(a.date)
}

// openService opens the store and returns a service loaded for the selected day.
func (a *app) openService(ctx context.Context) (*workout.Service, *storage.DB, error) {
	date, err := a.selectedDate()
	if err != nil {
		return nil, nil, err
	}
	db, err := storage.Open(ctx, a.cfg.Database.Path, a.log)
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}
	svc := workout.NewService(db, date, a.log)
	if err := svc.SelectDate(ctx, date); err != nil {
		db.Close()
		return nil, nil, err
	}
	return svc, db, nil
}
