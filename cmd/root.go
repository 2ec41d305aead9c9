// file: cmd/root.go
// version: 2.0.0
// guid: 6a7b8c9d-0e1f-2a3b-4c5d-6e7f8a9b0c1d

// Package cmd wires the CLI together: flags, configuration, and the
// organize/audit/serve commands.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rodaddy/audiobook-pipeline/internal/config"
	"github.com/rodaddy/audiobook-pipeline/internal/state"
)

// Version is stamped at build time.
var Version = "dev"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "audiobook-pipeline",
	Short: "Resolve audiobook metadata and place books into a library",
	Long: `Audiobook Pipeline resolves author, title, series, and position for
audiobooks using path heuristics, embedded tags, catalog search, and
optional AI disambiguation, then files them into a canonical
Author/Series/Title library layout.`,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.audiobook-pipeline.yaml)")
	pf.String("library", "", "library root directory")
	pf.String("inbox", "", "inbox directory with incoming audiobooks")
	pf.String("db", "", "path to the pipeline state database")
	pf.String("db-type", "pebble", "database type: pebble (default) or sqlite")
	pf.Bool("enable-sqlite3-i-know-the-risks", false, "enable SQLite3 database (WARNING: cross-compilation issues, PebbleDB recommended)")
	pf.Bool("dry-run", false, "log intended actions without touching files")
	pf.Float64("threshold", 65.0, "catalog match acceptance score (0-100)")
	pf.String("region", "com", "Audible marketplace region (com, co.uk, de, ...)")
	pf.Bool("ai-all", false, "run AI validation on every book, not just conflicts")
	pf.String("openai-base-url", "", "OpenAI-compatible endpoint for AI resolution (empty disables AI)")
	pf.String("openai-model", "gpt-4o-mini", "model for AI resolution")

	viper.BindPFlag("library_root", pf.Lookup("library"))
	viper.BindPFlag("inbox_dir", pf.Lookup("inbox"))
	viper.BindPFlag("database_path", pf.Lookup("db"))
	viper.BindPFlag("database_type", pf.Lookup("db-type"))
	viper.BindPFlag("enable_sqlite3_i_know_the_risks", pf.Lookup("enable-sqlite3-i-know-the-risks"))
	viper.BindPFlag("dry_run", pf.Lookup("dry-run"))
	viper.BindPFlag("match_threshold", pf.Lookup("threshold"))
	viper.BindPFlag("audible_region", pf.Lookup("region"))
	viper.BindPFlag("ai_all", pf.Lookup("ai-all"))
	viper.BindPFlag("openai_base_url", pf.Lookup("openai-base-url"))
	viper.BindPFlag("openai_model", pf.Lookup("openai-model"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".audiobook-pipeline")
	}

	viper.SetEnvPrefix("AUDIOBOOK")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}

	config.InitConfig()
	if err := config.LoadFromFile(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

// openStore opens the configured state backend. Returns nil (no
// tracking) when no database path is set.
func openStore() (state.Store, error) {
	cfg := config.AppConfig
	if cfg.DatabasePath == "" {
		return nil, nil
	}

	dbDir := filepath.Dir(cfg.DatabasePath)
	if dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	if cfg.DatabaseType == "sqlite" {
		if !cfg.EnableSQLite {
			return nil, fmt.Errorf("sqlite backend requires --enable-sqlite3-i-know-the-risks")
		}
		return state.NewSQLiteStore(cfg.DatabasePath)
	}
	return state.NewPebbleStore(cfg.DatabasePath)
}

func requireLibrary() error {
	if config.AppConfig.LibraryRoot == "" {
		return fmt.Errorf("library root not specified (--library)")
	}
	return nil
}
