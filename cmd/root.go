package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/senderwatch/internal/config"
)

// rootCmd represents the base command for the senderwatch application
var rootCmd = &cobra.Command{
	Use:   "senderwatch",
	Short: "Keeps newsletter senders in check",
	Long: `senderwatch helps you deal with the senders that fill your inbox.

For every sender it can:
  - auto-archive all future mail with a mailbox filter
  - report how many messages arrived per day, week or month
  - mark threads read or unread and move them to the trash

It can run as:
  - An MCP (Model Context Protocol) server for AI assistants
  - A set of CLI commands`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := config.LoadDotEnv(); err != nil {
			return err
		}
		setupLogging(debugMode)
		return nil
	},
}

var (
	// version will be set by main
	version = "dev"

	configPath string
	debugMode  bool
)

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "senderwatch version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// setupLogging routes slog to stderr so stdout stays free for the stdio transport.
func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// loadConfig reads the configuration selected by --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", fmt.Sprintf("Config file (default %s)", config.DefaultConfigPath()))
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newAutoArchiveCmd())
	rootCmd.AddCommand(newVersionCmd())
}
