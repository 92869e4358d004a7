package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/boolexpr/pkg/api"
	grpcapi "github.com/lemonberrylabs/boolexpr/pkg/api/grpc"
	"github.com/lemonberrylabs/boolexpr/pkg/store"
	"github.com/lemonberrylabs/boolexpr/web"
)

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, web UI and gRPC service",
		RunE:  a.serve,
	}
	cmd.Flags().Int("port", 0, "HTTP server port (default 8787, env PORT)")
	cmd.Flags().Int("grpc-port", 0, "gRPC server port (default 8788, env GRPC_PORT)")
	cmd.Flags().String("host", "", "Bind address (default 0.0.0.0, env HOST)")
	cmd.Flags().String("expressions-dir", "", "Directory of YAML suites whose expressions are preloaded (env EXPRESSIONS_DIR)")
	return cmd
}

func (a *app) serve(cmd *cobra.Command, args []string) error {
	cfg := a.cfg
	if v, _ := cmd.Flags().GetInt("port"); v != 0 {
		cfg.Server.Port = v
	}
	if v, _ := cmd.Flags().GetInt("grpc-port"); v != 0 {
		cfg.Server.GRPCPort = v
	}
	if v, _ := cmd.Flags().GetString("host"); v != "" {
		cfg.Server.Host = v
	}
	if v, _ := cmd.Flags().GetString("expressions-dir"); v != "" {
		cfg.Server.ExpressionsDir = v
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	s := store.New()
	server := api.New(s, a.format)

	if dir := cfg.Server.ExpressionsDir; dir != "" {
		n, err := server.LoadDir(dir)
		if err != nil {
			slog.Warn("Failed to load expressions directory", "dir", dir, "error", err)
		} else {
			slog.Info("Loaded expressions", "dir", dir, "count", n)
		}
	}

	// Register the web UI (non-fatal if template parsing fails)
	func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Warn("Web UI disabled due to template error", "error", r)
			}
		}()
		ui := web.New(s, a.format)
		ui.Register(server.App())
	}()

	grpcServer := grpcapi.New(s, a.format)
	go func() {
		slog.Info("gRPC server listening", "addr", cfg.GRPCAddr())
		if err := grpcServer.Serve(cfg.GRPCAddr()); err != nil {
			slog.Error("gRPC server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		slog.Info("Shutting down")
		grpcServer.GracefulStop()
		if err := server.Shutdown(); err != nil {
			slog.Error("Error during shutdown", "error", err)
		}
	}()

	slog.Info("boolexpr server listening", "addr", cfg.Addr(), "ui", "/ui")
	return server.Listen(cfg.Addr())
}
