// Package main is the entry point for the Context Gateway.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// ANSI color codes
const (
	accentRed = "\033[38;2;165;0;52m"
	bold      = "\033[1m"
	reset     = "\033[0m"
)

// ASCII banner for startup
const banner = `
  ┌─┐┌─┐┌┐┌┌┬┐┌─┐─┐ ┬┌┬┐  ┌─┐┌─┐┌┬┐┌─┐┬ ┬┌─┐┬ ┬
  │  │ ││││ │ ├┤ ┌┴┬┘ │   │ ┬├─┤ │ ├┤ │││├─┤└┬┘
  └─┘└─┘┘└┘ ┴ └─┘┴ └─ ┴   └─┘┴ ┴ ┴ └─┘└┴┘┴ ┴ ┴
`

func printBanner() {
	fmt.Print(accentRed + bold + banner + reset + "\n")
}

// rootFlags are the persistent flags shared by every subcommand.
type rootFlags struct {
	configPath string
	debug      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "context-gateway",
		Short: "Context Gateway - keeps chat conversations inside the model's context window",
		Long: `Context Gateway sits between a chat UI and Ollama. When a conversation
grows past the token threshold, older turns are summarized by an LLM and
the recent turns are kept verbatim.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			loadEnvFiles()
			setupLogging(flags.debug)
		},
	}

	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to config file (default: embedded config)")
	root.PersistentFlags().BoolVarP(&flags.debug, "debug", "d", false, "enable debug logging")

	root.AddCommand(newServeCmd(flags))
	root.AddCommand(newCompactCmd(flags))
	root.AddCommand(newCountCmd(flags))
	root.AddCommand(newVersionCmd())
	return root
}

// loadEnvFiles loads .env from standard locations
func loadEnvFiles() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		_ = godotenv.Load()
		return
	}

	// Try loading from ~/.config/context-gateway/.env first
	configEnv := filepath.Join(homeDir, ".config", "context-gateway", ".env")
	if _, err := os.Stat(configEnv); err == nil {
		_ = godotenv.Load(configEnv)
	}

	// Also load local .env (can override)
	_ = godotenv.Load()
}

// setupLogging configures the global zerolog logger for CLI output.
// The level is set on the logger rather than globally so that a component
// logger can lower its own level (summarization debug_logging). The serve
// command replaces it with the configured logger once the config is loaded.
func setupLogging(debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).Level(level)
}
