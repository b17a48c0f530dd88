package main

import (
	"fmt"
	"os"
	"time"

	"recsync/internal/app"
	"recsync/internal/config"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// configPath returns the --config flag value, or the default config path.
func configPath(cmd *cobra.Command) (string, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path, nil
	}
	defaults, err := app.GetDefaults()
	if err != nil {
		return "", fmt.Errorf("getting defaults: %w", err)
	}
	return defaults.ConfigPath, nil
}

func readConfig(cmd *cobra.Command) (*config.Config, string, error) {
	path, err := configPath(cmd)
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.ReadFromFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}
	return cfg, path, nil
}

// newApp reads the config and creates a RecsyncApp. The caller must defer app.Close().
func newApp(cmd *cobra.Command, opts app.Options) (*app.RecsyncApp, error) {
	cfg, _, err := readConfig(cmd)
	if err != nil {
		return nil, err
	}

	a, err := app.NewRecsyncApp(cmd.Context(), cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "recsync",
	Short:        "Sync today's kintone records into the CSV snapshot",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		verbose, _ := cmd.Flags().GetBool("verbose")

		a, err := newApp(cmd, app.Options{DryRun: dryRun, Verbose: verbose, Stderr: os.Stderr})
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Sync(cmd.Context())
		if err != nil {
			return fmt.Errorf("sync %s failed: %w", result.RunID, err)
		}

		fmt.Printf("Run %s: fetched %d, inserted %d, updated %d, skipped %d, %d rows",
			result.RunID, result.Fetched, result.Inserted, result.Updated, result.Skipped, result.Rows)
		if result.DryRun {
			fmt.Print(" (dry run, not uploaded)")
		}
		fmt.Println()
		return nil
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration and the run journal",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		path, err := configPath(cmd)
		if err != nil {
			return err
		}

		cfg := config.NewConfig(defaults.BaseDir)
		if err := config.Init(path, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		journalPath, err := app.MigrateJournal(cfg.Journal)
		if err != nil {
			return err
		}

		fmt.Printf("Configuration initialized at %s\n", path)
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		fmt.Printf("Journal:  %s\n", journalPath)
		fmt.Println("Set [source] app_id before the first sync.")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := readConfig(cmd)
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Timezone:    %s\n", cfg.Timezone)
		fmt.Printf("Date Policy: %s\n", cfg.DatePolicy)
		fmt.Printf("Dry Run:     %t\n", cfg.DryRun)
		fmt.Printf("Secret:      %s\n", cfg.Secret.Type)
		fmt.Printf("App ID:      %s\n", cfg.Source.AppID)
		fmt.Printf("Store:       %s\n", cfg.Store.Type)
		fmt.Printf("Journal:     %s\n", cfg.Journal.Type)

		if err := cfg.Validate(); err != nil {
			fmt.Printf("\nConfiguration is invalid: %v\n", err)
		}
		return nil
	},
}

// migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending run journal migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := readConfig(cmd)
		if err != nil {
			return err
		}

		path, err := app.MigrateJournal(cfg.Journal)
		if err != nil {
			return err
		}
		fmt.Printf("Journal up to date: %s\n", path)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View sync run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.GetHistory(limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No sync runs recorded.")
			return nil
		}

		for _, r := range runs {
			duration := ""
			if !r.FinishedAt.IsZero() {
				duration = r.FinishedAt.Sub(r.StartedAt).Truncate(time.Millisecond).String()
			}
			fmt.Printf("%s  %s  %-7s  +%d ~%d  %d rows  %s\n",
				r.RunID,
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				r.State,
				r.Inserted,
				r.Updated,
				r.Rows,
				duration,
			)
			if r.Error != "" {
				fmt.Printf("    %s\n", r.Error)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file path (default $RECSYNC_CONFIG_PATH or ~/.config/recsync.toml)")
	rootCmd.Flags().Bool("dry-run", false, "Merge but do not upload the snapshot")
	rootCmd.Flags().BoolP("verbose", "v", false, "Log debug records")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of runs to show")
}
