package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/poolkeeper/poolkeeper/pkg/engine"
	"github.com/poolkeeper/poolkeeper/pkg/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the monitoring endpoint and env-file drift watcher",
	Long: `Serve Prometheus metrics and a stack health summary over HTTP, and
watch the env file for modifications made outside poolkeeper. Runs until
interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		listen, _ := cmd.Flags().GetString("listen")

		svc, err := buildService()
		if err != nil {
			return err
		}

		watcher, err := engine.NewDriftWatcher(flagEnvFile)
		if err != nil {
			return fmt.Errorf("failed to watch env file: %w", err)
		}
		defer watcher.Close()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		go watcher.Run(ctx)

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.HandleFunc("/stack", func(w http.ResponseWriter, r *http.Request) {
			summary := make(map[string]any, len(svc.Stack().Services))
			for _, def := range svc.Stack().Services {
				status := svc.GetStatus(r.Context(), def.Name)
				summary[def.Name] = map[string]any{
					"status": status.Status,
					"health": status.Health,
					"uptime": status.Uptime,
				}
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(summary)
		})

		server := &http.Server{
			Addr:              listen,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		fmt.Printf("Serving metrics on http://%s/metrics\n", listen)
		fmt.Printf("Watching %s for external modification\n", flagEnvFile)
		fmt.Println("Press Ctrl+C to stop.")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			fmt.Println("\nShutting down...")
		case err := <-errCh:
			return fmt.Errorf("metrics server error: %w", err)
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		fmt.Println("✓ Shutdown complete")
		return nil
	},
}

func init() {
	serveCmd.Flags().String("listen", "127.0.0.1:9127", "Address to serve metrics on")
}
