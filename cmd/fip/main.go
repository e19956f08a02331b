package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	clientcmd "github.com/rmca/fip/internal/cmd/client"
	serverrun "github.com/rmca/fip/internal/cmd/server"
	"github.com/rmca/fip/internal/config"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fip",
		Short: "fip ingestion runtime CLI",
		Long:  "fip accepts JSON documents over HTTP, persists them asynchronously, and serves paged and live reads. This CLI manages the server and basic client operations.",
	}

	// server start
	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the fip server",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			dataDir, _ := cmd.Flags().GetString("data-dir")
			httpAddr, _ := cmd.Flags().GetString("http")
			logLevel, _ := cmd.Flags().GetString("log-level")
			logFormat, _ := cmd.Flags().GetString("log-format")

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			config.FromEnv(&cfg)
			if dataDir != "" {
				cfg.DataDir = dataDir
			}
			if httpAddr != "" {
				cfg.HTTPAddr = httpAddr
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if err := serverrun.Run(ctx, serverrun.Options{
				Config:    cfg,
				LogLevel:  logLevel,
				LogFormat: logFormat,
			}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	serverStartCmd.Flags().String("config", "", "Path to JSON config file")
	serverStartCmd.Flags().String("data-dir", "", "Data directory (default: OS-specific application data directory)")
	serverStartCmd.Flags().String("http", "", "HTTP listen address (default :8080)")
	serverStartCmd.Flags().String("log-level", os.Getenv("FIP_LOG_LEVEL"), "Log level: debug|info|warn|error")
	serverStartCmd.Flags().String("log-format", os.Getenv("FIP_LOG_FORMAT"), "Log format: text|json (default text)")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	// client commands
	rootCmd.AddCommand(
		clientcmd.NewSubmitCommand(apiURL),
		clientcmd.NewRecordsCommand(apiURL),
		clientcmd.NewTailCommand(apiURL),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func apiURL() string {
	if v := os.Getenv("FIP_HTTP"); v != "" {
		return v
	}
	return "http://127.0.0.1:8080"
}
