package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/geo-attendance/internal/config"
	"github.com/kozaktomas/geo-attendance/internal/database"
	"github.com/kozaktomas/geo-attendance/internal/logging"
	"github.com/kozaktomas/geo-attendance/internal/web"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the attendance API server.
Migrations are applied on startup. The server stops gracefully on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command, cfg *config.Config) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if !cmd.Flags().Changed("port") && cfg.Web.Port > 0 {
		port = cfg.Web.Port
	}
	if !cmd.Flags().Changed("host") && cfg.Web.Host != "" {
		host = cfg.Web.Host
	}
	return port, host
}

// warnIfNoUsers prints a hint for fresh installations.
func warnIfNoUsers(ctx context.Context) {
	users, err := database.GetUserReader(ctx)
	if err != nil {
		return
	}
	if n, err := users.CountUsers(ctx); err == nil && n == 0 {
		fmt.Println("No users yet. Create the first admin with: attendance user create --admin --email ... --name ... --password ...")
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}
	if cfg.Auth.SecretKey == config.DefaultSecretKey {
		logger.Warn("SECRET_KEY is not set, using the development default")
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	pool, err := connectStores(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close()
	warnIfNoUsers(cmd.Context())

	port, host := resolveServeHostPort(cmd, cfg)
	server, err := web.NewServer(cfg, port, host, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("error during shutdown", zap.Error(err))
		}
	}()

	fmt.Printf("Starting attendance API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
