package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/poolkeeper/poolkeeper/pkg/config"
	"github.com/poolkeeper/poolkeeper/pkg/engine"
	"github.com/poolkeeper/poolkeeper/pkg/envfile"
	"github.com/poolkeeper/poolkeeper/pkg/store"
)

// buildEngine wires the update engine with the audit journal. The caller
// must invoke the returned cleanup.
func buildEngine() (*engine.Engine, func(), error) {
	svc, err := buildService()
	if err != nil {
		return nil, nil, err
	}

	journal, err := store.Open(flagDataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open audit journal: %w", err)
	}

	e := engine.New(flagEnvFile, svc, engine.WithJournal(journal))
	return e, func() { journal.Close() }, nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and change pooler configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved pooler configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := envfile.Load(flagEnvFile)
		if err != nil {
			return err
		}

		schema := config.DefaultSchema()
		resolved, result := config.Parse(schema, file)

		names := make([]string, 0, len(resolved))
		for name := range resolved {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			entry, _ := schema.Entry(name)
			fmt.Printf("%-32s = %-24v # %s\n", name, resolved[name], entry.Description)
		}

		printFindings(result)
		if !result.IsValid() {
			return fmt.Errorf("configuration is invalid")
		}
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the pooler configuration without changing it",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := envfile.Load(flagEnvFile)
		if err != nil {
			return err
		}

		_, result := config.Parse(config.DefaultSchema(), file)
		printFindings(result)
		if !result.IsValid() {
			return fmt.Errorf("configuration is invalid")
		}
		fmt.Println("✓ Configuration is valid")
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Apply configuration changes transactionally",
	Long: `Apply one or more pooler configuration changes. The current file is
backed up first; after writing, the pooler container is restarted and
polled until healthy. If anything fails after the write, the backup is
restored and the container restarted with the previous configuration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := requestFromFlags(cmd)
		if req.IsEmpty() {
			return fmt.Errorf("no changes requested; see --help for available flags")
		}

		e, cleanup, err := buildEngine()
		if err != nil {
			return err
		}
		defer cleanup()

		result, err := e.Update(cmd.Context(), req)
		for _, w := range result.Warnings {
			fmt.Printf("warning: %s: %s\n", w.Field, w.Message)
		}
		if err != nil {
			if result.RollbackAvailable && !result.Success {
				fmt.Printf("Backup: %s\n", result.BackupRef)
			}
			return err
		}

		fmt.Printf("✓ Configuration updated (request %s)\n", result.RequestID)
		fmt.Printf("  Backup: %s\n", result.BackupRef)
		if result.Restarted {
			fmt.Println("  Pooler restarted and verified healthy")
		}
		return nil
	},
}

// requestFromFlags builds an UpdateRequest from the flags the user
// actually set, so unset flags stay out of the request.
func requestFromFlags(cmd *cobra.Command) engine.UpdateRequest {
	var req engine.UpdateRequest
	if cmd.Flags().Changed("pool-size") {
		v, _ := cmd.Flags().GetInt("pool-size")
		req.PoolSize = &v
	}
	if cmd.Flags().Changed("max-client-conn") {
		v, _ := cmd.Flags().GetInt("max-client-conn")
		req.MaxClientConn = &v
	}
	if cmd.Flags().Changed("pool-mode") {
		v, _ := cmd.Flags().GetString("pool-mode")
		req.PoolMode = &v
	}
	if cmd.Flags().Changed("port") {
		v, _ := cmd.Flags().GetInt("port")
		req.Port = &v
	}
	if cmd.Flags().Changed("db-pool-size") {
		v, _ := cmd.Flags().GetInt("db-pool-size")
		req.DBPoolSize = &v
	}
	if cmd.Flags().Changed("tenant-id") {
		v, _ := cmd.Flags().GetString("tenant-id")
		req.TenantID = &v
	}
	return req
}

func printFindings(result config.Result) {
	for _, e := range result.Errors {
		fmt.Printf("error: %s: %s [%s]\n", e.Field, e.Message, e.Code)
	}
	for _, w := range result.Warnings {
		fmt.Printf("warning: %s: %s [%s]\n", w.Field, w.Message, w.Code)
	}
}

var configHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent configuration update attempts",
	RunE: func(cmd *cobra.Command, args []string) error {
		journal, err := store.Open(flagDataDir)
		if err != nil {
			return err
		}
		defer journal.Close()

		limit, _ := cmd.Flags().GetInt("limit")

		if breakers, _ := cmd.Flags().GetBool("breakers"); breakers {
			events, err := journal.ListBreakerEvents(limit)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Println("No breaker transitions recorded.")
				return nil
			}
			for _, ev := range events {
				fmt.Printf("%s  %-12s  %s -> %s\n",
					ev.OccurredAt.Format("2006-01-02 15:04:05"), ev.Service, ev.From, ev.To)
			}
			return nil
		}

		records, err := journal.ListUpdates(limit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No update attempts recorded.")
			return nil
		}

		for _, rec := range records {
			fmt.Printf("%s  %-12s  request=%s  rollback=%v\n",
				rec.StartedAt.Format("2006-01-02 15:04:05"),
				rec.Outcome, rec.RequestID, rec.RolledBack)
			for key, value := range rec.Changes {
				fmt.Printf("    %s=%s\n", key, value)
			}
			if rec.Error != "" {
				fmt.Printf("    error: %s\n", rec.Error)
			}
		}
		return nil
	},
}

// Backup commands
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage configuration backups",
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configuration backups, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, cleanup, err := buildEngine()
		if err != nil {
			return err
		}
		defer cleanup()

		backups, err := e.ListBackups()
		if err != nil {
			return err
		}
		if len(backups) == 0 {
			fmt.Println("No backups found.")
			return nil
		}
		for _, b := range backups {
			fmt.Printf("%s  %s\n", b.CreatedAt.Format("2006-01-02 15:04:05"), b.Path)
		}
		return nil
	},
}

var backupCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete all but the most recent backups",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, cleanup, err := buildEngine()
		if err != nil {
			return err
		}
		defer cleanup()

		keep, _ := cmd.Flags().GetInt("keep")
		if err := e.CleanupOldBackups(keep); err != nil {
			return err
		}
		fmt.Printf("✓ Kept the %d most recent backups\n", keep)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configHistoryCmd)

	configSetCmd.Flags().Int("pool-size", 0, "Default pool size (1-1000)")
	configSetCmd.Flags().Int("max-client-conn", 0, "Maximum client connections (1-10000)")
	configSetCmd.Flags().String("pool-mode", "", "Pool mode: session, transaction, or statement")
	configSetCmd.Flags().Int("port", 0, "Transaction proxy port (1-65535)")
	configSetCmd.Flags().Int("db-pool-size", 0, "Metadata database pool size (1-100)")
	configSetCmd.Flags().String("tenant-id", "", "Tenant identifier")

	configHistoryCmd.Flags().Int("limit", 20, "Maximum number of records to show")
	configHistoryCmd.Flags().Bool("breakers", false, "Show circuit breaker transitions instead of update attempts")

	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupCleanupCmd)
	backupCleanupCmd.Flags().Int("keep", 5, "Number of backups to retain")
}
