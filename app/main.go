package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todo-share/app/config"
	"todo-share/app/controllers"
	"todo-share/app/routes"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	slot     string
	dataDir  string
	key      string
	logLevel string
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "todo",
		Short:         "Day, week, month and year task lists with shareable links",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&flags.slot, "slot", "", "storage backend: memory, file, neo4j, redis or sqlite (env TODO_SLOT)")
	cmd.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "directory for the file backend (env TODO_DATA_DIR)")
	cmd.PersistentFlags().StringVar(&flags.key, "key", "", "storage key holding the task list (env TODO_STORAGE_KEY)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error (env LOG_LEVEL)")

	cmd.AddCommand(
		serveCmd(flags),
		addCmd(flags),
		listCmd(flags),
		toggleCmd(flags),
		updateCmd(flags),
		removeCmd(flags),
		shareCmd(flags),
		importCmd(flags),
	)
	return cmd
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flags.slot != "" {
		cfg.Slot = flags.slot
	}
	if flags.dataDir != "" {
		cfg.DataDir = flags.dataDir
	}
	if flags.key != "" {
		cfg.StorageKey = flags.key
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serveCmd(flags *globalFlags) *cobra.Command {
	var addr, publicURL string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			if publicURL != "" {
				cfg.PublicURL = publicURL
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := openApplication(ctx, cfg, os.Stdout)
			if err != nil {
				return err
			}

			taskController := controllers.NewTaskController(app.store)
			shareController := controllers.NewShareController(app.store, app.codec, cfg.PublicURL)

			router := mux.NewRouter()
			routes.RegisterRoutes(router, taskController, shareController, app.logger)

			srv := &http.Server{
				Addr:              cfg.Addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				app.logger.Info("Server is running", "addr", cfg.Addr, "slot", cfg.Slot)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					_ = app.Close(context.Background())
					return fmt.Errorf("listen: %w", err)
				}
			case <-ctx.Done():
			}

			app.logger.Info("Shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				app.logger.Error("Server forced to shutdown", "error", err)
			}
			if err := app.Close(shutdownCtx); err != nil {
				return err
			}
			app.logger.Info("Server exited")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (env TODO_ADDR)")
	cmd.Flags().StringVar(&publicURL, "public-url", "", "page share links point at (env TODO_PUBLIC_URL)")
	return cmd
}
