package main

import (
	"github.com/claude/setlog/internal/storage"
	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := storage.Open(cmd.Context(), a.cfg.Database.Path, a.log)
			if err != nil {
				return err
			}
			a.log.Info("migrations applied", "path", a.cfg.Database.Path)
			return db.Close()
		},
	}
}
