// file: cmd/serve.go
// version: 1.0.0
// guid: 9d0e1f2a-3b4c-5d6e-7f8a-9b0c1d2e3f4a

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rodaddy/audiobook-pipeline/internal/config"
	"github.com/rodaddy/audiobook-pipeline/internal/server"
)

// serveCmd starts the status/audit/metrics HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API (health, library report, metrics)",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
		}

		appCfg := config.AppConfig
		srvCfg := server.Config{
			Host:              appCfg.Server.Host,
			Port:              appCfg.Server.Port,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
			RequestsPerMinute: appCfg.Server.RequestsPerMinute,
			AuthUsername:      appCfg.Server.AuthUsername,
			AuthPassword:      appCfg.Server.AuthPassword,
		}
		if port, _ := cmd.Flags().GetString("port"); port != "" {
			srvCfg.Port = port
		}
		if host, _ := cmd.Flags().GetString("host"); host != "" {
			srvCfg.Host = host
		}

		srv := server.New(store, appCfg.LibraryRoot, Version, srvCfg)
		fmt.Printf("Serving on %s:%s\n", srvCfg.Host, srvCfg.Port)
		return srv.Start(srvCfg)
	},
}

// saveConfigCmd persists the active settings next to the database.
var saveConfigCmd = &cobra.Command{
	Use:   "save-config",
	Short: "Write the active settings to the YAML settings file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SaveToFile(); err != nil {
			return err
		}
		fmt.Printf("Settings saved to %s\n", config.SettingsFilePath())
		return nil
	},
}

func init() {
	serveCmd.Flags().String("port", "", "port to listen on (overrides config)")
	serveCmd.Flags().String("host", "", "host to bind (overrides config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(saveConfigCmd)
}
