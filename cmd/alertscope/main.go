// Package main provides the entry point for the alertscope HTTP service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"alertscope/internal/config"
	"alertscope/internal/server"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}

// flagBindings maps command-line flags onto configuration keys.
var flagBindings = map[string]string{
	"host":              "app.host",
	"port":              "app.port",
	"log-level":         "app.log_level",
	"es-hosts":          "elasticsearch.hosts",
	"es-username":       "elasticsearch.username",
	"es-password-env":   "elasticsearch.password_env",
	"es-timeout":        "elasticsearch.timeout",
	"es-index":          "elasticsearch.index",
	"page-size":         "elasticsearch.page_size",
	"scroll-ttl":        "elasticsearch.scroll_ttl",
	"default-responder": "alerts.default_responder",
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alertscope",
		Short: "HTTP service exposing normalised Opsgenie alerts from Elasticsearch",
		Long: `alertscope queries the Elasticsearch alert index for one responder team
and time window, flattens each alert into a fixed set of readable fields,
and serves the result as JSON or CSV.`,

		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}

	flags := cmd.Flags()
	flags.String("host", "0.0.0.0", "Address to bind the HTTP server to")
	flags.Int("port", 5000, "Port to listen on")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringSlice("es-hosts", []string{"http://localhost:9200"}, "Elasticsearch URLs")
	flags.String("es-username", "", "Elasticsearch basic auth user")
	flags.String("es-password-env", "", "Environment variable holding the Elasticsearch password")
	flags.String("es-timeout", "1300s", "Elasticsearch request timeout")
	flags.String("es-index", "entity.alert", "Alert index name")
	flags.Int("page-size", 100, "Hits per scroll page")
	flags.String("scroll-ttl", "1m", "Scroll cursor keep-alive")
	flags.String("default-responder", "olympus_middleware_sre", "Responder used when the request names none")

	if err := bindFlags(viper.GetViper(), flags); err != nil {
		panic(err)
	}

	cmd.AddCommand(newVersionCmd())

	return cmd
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagBindings {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("failed to bind %s flag: %w", name, err)
		}
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("alertscope %s\n", version)
			fmt.Printf("commit: %s\n", commit)
			fmt.Printf("built: %s\n", date)
		},
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.SlogLevel(),
	}))
	slog.SetDefault(logger)

	srv, err := server.New(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		return err
	}

	logger.Info("Server exited")
	return nil
}
