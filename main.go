package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"IP-DNS-API/log"
)

const shutdownTimeout = 10 * time.Second

func newRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:          "ipdns",
		Short:        "HTTP API reporting the caller IP address and resolving DNS records",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags(), configFile)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "config file (yaml, json or toml)")
	registerFlags(cmd.Flags())

	return cmd
}

func initLog(cfg Config) error {
	lc := log.Config{
		File:       cfg.Log.File,
		STDOUT:     cfg.Log.STDOUT,
		JsonFormat: cfg.Log.JSON,
		MaxAge:     2,
		MaxSize:    10,
		MaxBackups: 100,
	}

	if cfg.Log.Verbose {
		lc.Level = -1
	}

	if err := log.Init(lc); err != nil {
		return fmt.Errorf("init log: %w", err)
	}

	return nil
}

// newServer hands every request, "OPTIONS *" included, to handler.
func newServer(cfg Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:                         net.JoinHostPort(cfg.Address, cfg.Port),
		Handler:                      handler,
		ReadTimeout:                  cfg.ReadTimeout,
		WriteTimeout:                 cfg.WriteTimeout,
		IdleTimeout:                  cfg.IdleTimeout,
		DisableGeneralOptionsHandler: true,
	}
}

func run(ctx context.Context, cfg Config) error {
	if err := initLog(cfg); err != nil {
		return err
	}
	defer log.Sync()

	resolver, err := NewDNSResolver(cfg)
	if err != nil {
		return err
	}

	if cfg.Docs {
		if _, err = loadSpec(ctx, []byte(specYAML)); err != nil {
			return err
		}
	}

	server := newServer(cfg, NewRouter(cfg, resolver))

	if cfg.MetricsAddress != "" {
		metrics := serveMetrics(cfg.MetricsAddress)
		defer func() { _ = metrics.Close() }()
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", server.Addr, err)
	}

	// Graceful Shutdown
	serverErrors := make(chan error, 1)
	go func() {
		log.Sugar.Infow("Listening", "address", ln.Addr().String(), "docs", cfg.Docs)
		serverErrors <- server.Serve(ln)
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err = <-serverErrors:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
		log.Sugar.Info("Server shutting down...")
		timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer timeoutCancel()

		if err = server.Shutdown(timeoutCtx); err != nil {
			log.Sugar.Errorf("graceful shutdown failed error=[%+v]", err)
			if err = server.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Sugar.Errorf("forced close failed error=[%+v]", err)
			}
		}
	}

	log.Sugar.Info("Server stopped")
	return nil
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
