package main

import (
	"github.com/claude/setlog/internal/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the MCP tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, db, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			a.log.Info("mcp stdio server starting", "version", Version, "date", svc.SelectedDate())
			return mcpserver.ServeStdio(mcp.New(svc, Version, a.log))
		},
	}
}
