package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/poolkeeper/poolkeeper/pkg/lifecycle"
	"github.com/poolkeeper/poolkeeper/pkg/log"
	"github.com/poolkeeper/poolkeeper/pkg/resilience"
	"github.com/poolkeeper/poolkeeper/pkg/runtime"
	"github.com/poolkeeper/poolkeeper/pkg/store"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var (
	flagEnvFile  string
	flagServices string
	flagDataDir  string
	flagLogLevel string
	flagLogJSON  bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "poolkeeper",
	Short: "Poolkeeper - operational control for a self-hosted connection pooler",
	Long: `Poolkeeper manages the containers behind a self-hosted connection
pooling stack: it reports their status, checks their health, and applies
pooler configuration changes transactionally — snapshot, write, restart,
verify, and roll back automatically when the service does not come back
healthy.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.Init(log.Config{
			Level:      log.Level(flagLogLevel),
			JSONOutput: flagLogJSON,
		})
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Poolkeeper version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", "./pooler.env", "Path to the pooler env file")
	rootCmd.PersistentFlags().StringVar(&flagServices, "services", "", "Path to the services YAML file (built-in stack if empty)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "./poolkeeper-data", "Data directory for the audit journal")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&flagLogJSON, "log-json", false, "Emit JSON logs instead of console output")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(restartCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(serveCmd)
}

// buildService wires the lifecycle service over the docker CLI and the
// configured stack.
func buildService() (*lifecycle.Service, error) {
	stack := lifecycle.DefaultStack()
	if flagServices != "" {
		loaded, err := lifecycle.LoadStack(flagServices)
		if err != nil {
			return nil, err
		}
		stack = loaded
	}
	return lifecycle.NewService(runtime.NewDockerCLI(), stack), nil
}

func stateMark(state lifecycle.ContainerState, health lifecycle.HealthState) string {
	if state == lifecycle.StateRunning && (health == lifecycle.HealthHealthy || health == lifecycle.HealthNone) {
		return "✓"
	}
	if state == lifecycle.StateStopped {
		return "-"
	}
	return "✗"
}

// Status command
var statusCmd = &cobra.Command{
	Use:   "status [SERVICE]",
	Short: "Show container status and health for the stack",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildService()
		if err != nil {
			return err
		}

		names := make([]string, 0, len(svc.Stack().Services))
		if len(args) == 1 {
			if _, ok := svc.Stack().Lookup(args[0]); !ok {
				return fmt.Errorf("unknown service %q", args[0])
			}
			names = append(names, args[0])
		} else {
			for _, def := range svc.Stack().Services {
				names = append(names, def.Name)
			}
		}

		fmt.Printf("%-2s %-12s %-10s %-10s %-20s %s\n", "", "SERVICE", "STATUS", "HEALTH", "UPTIME", "PORTS")
		for _, name := range names {
			status := svc.GetStatus(cmd.Context(), name)
			var ports []string
			for _, p := range status.Ports {
				ports = append(ports, fmt.Sprintf("%d->%d/%s", p.HostPort, p.ContainerPort, p.Protocol))
			}
			fmt.Printf("%-2s %-12s %-10s %-10s %-20s %s\n",
				stateMark(status.Status, status.Health),
				name, status.Status, status.Health, status.Uptime,
				strings.Join(ports, ", "))
		}
		return nil
	},
}

// Lifecycle commands
var restartCmd = &cobra.Command{
	Use:   "restart SERVICE",
	Short: "Restart a service's container and wait until it is healthy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildService()
		if err != nil {
			return err
		}

		// Transient runtime failures are retried; a persistently failing
		// service trips its breaker and every transition is journaled.
		handler := resilience.NewHandler(resilience.DefaultBreakerConfig(), log.WithComponent("cli"))
		if journal, err := store.Open(flagDataDir); err == nil {
			defer journal.Close()
			handler.Breakers().SetTransitionHook(func(name string, from, to resilience.BreakerState) {
				_ = journal.RecordBreakerEvent(&store.BreakerEvent{
					Service:    name,
					From:       from.String(),
					To:         to.String(),
					OccurredAt: time.Now(),
				})
			})
		}

		name := args[0]
		fmt.Printf("Restarting %s...\n", name)
		policy := resilience.DefaultRetryPolicy()
		err = handler.Execute(cmd.Context(), name, func(ctx context.Context) error {
			return svc.Restart(ctx, name)
		}, resilience.Options{Retry: &policy, Breaker: true})
		if err != nil {
			return err
		}
		if err := svc.AwaitHealthy(cmd.Context(), name, lifecycle.DefaultHealthTimeout); err != nil {
			return err
		}
		fmt.Printf("✓ %s is running and healthy\n", name)
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop SERVICE",
	Short: "Stop a service's container",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildService()
		if err != nil {
			return err
		}
		if err := svc.Stop(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("✓ %s stopped\n", args[0])
		return nil
	},
}

var startCmd = &cobra.Command{
	Use:   "start SERVICE",
	Short: "Start a service's container and verify it is running",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildService()
		if err != nil {
			return err
		}
		if err := svc.Start(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("✓ %s started\n", args[0])
		return nil
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs SERVICE",
	Short: "Show recent log output for a service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildService()
		if err != nil {
			return err
		}
		lines, _ := cmd.Flags().GetInt("lines")
		fmt.Print(svc.GetLogs(cmd.Context(), args[0], lines))
		return nil
	},
}

func init() {
	logsCmd.Flags().Int("lines", 100, "Number of log lines to show")
}
