package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/setlog/internal/mcp"
	"github.com/claude/setlog/internal/server"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"tailscale.com/tsnet"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API (and MCP over HTTP at /mcp)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	log := a.log
	log.Info("setlog starting", "version", Version)

	svc, db, err := a.openService(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	srv := server.New(svc, db, a.cfg.Auth.APIKey, log)
	srv.MountMCP(mcpserver.NewStreamableHTTPServer(mcp.New(svc, Version, log)))

	// Start server: tsnet or plain HTTP
	var listener net.Listener
	if a.cfg.Tailscale.Enabled {
		tsServer := &tsnet.Server{
			Hostname: a.cfg.Tailscale.Hostname,
			Dir:      a.cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			return err
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			return err
		}
		log.Info("tsnet server starting", "hostname", a.cfg.Tailscale.Hostname)
	} else {
		addr := a.cfg.Server.Addr()
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			return err
		}
		log.Info("server starting", "addr", addr, "mode", "plain (no tailscale)")
	}

	g, gctx := errgroup.WithContext(ctx)
	httpSrv := newHTTPServer(gctx, srv)
	g.Go(func() error {
		if err := httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		return err
	}
	log.Info("server stopped")
	return nil
}

// newHTTPServer returns a server whose request contexts derive from ctx, so
// long-lived streams end when ctx is cancelled instead of holding Shutdown.
func newHTTPServer(ctx context.Context, h http.Handler) *http.Server {
	return &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}
