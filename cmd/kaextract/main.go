package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/byteowlz/kaextract/internal/config"
	"github.com/byteowlz/kaextract/internal/logx"
)

// Exit codes for granular error handling
const (
	ExitSuccess      = 0
	ExitNetworkError = 1
	ExitProcessError = 2
	ExitInvalidInput = 3
	ExitConfigError  = 4
	ExitFileIOError  = 5
	ExitPartialError = 6 // some keys failed, some succeeded
)

var (
	cfgFile string
	verbose bool
	quiet   bool

	cfg *config.Config
)

const version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:   "kaextract",
	Short: "Extract classified ads from kleinanzeigen.de",
	Long: `kaextract fetches a kleinanzeigen.de listing and shows its title,
description, price, location and images. Results are cached locally.
Run "kaextract serve" for the HTTP API and "kaextract extract" as client.`,
	Version:           version,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		if !quiet {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(ExitInvalidInput)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/kaextract/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all non-content output")

	rootCmd.AddCommand(extractCmd, serveCmd, cacheCmd)
}

// setup loads the configuration and installs the logger before any
// subcommand runs.
func setup(cmd *cobra.Command, args []string) error {
	ensureConfigFile()

	loaded, err := config.Load(cfgFile)
	if err != nil {
		return exitError(ExitConfigError, "failed to load config: %v", err)
	}
	if err := loaded.Validate(); err != nil {
		return exitError(ExitConfigError, "invalid config: %v", err)
	}
	cfg = loaded

	switch {
	case quiet:
		logx.Discard()
	case verbose:
		logx.Init("debug", cfg.Logging.Format)
	default:
		logx.Init(cfg.Logging.Level, cfg.Logging.Format)
	}
	return nil
}

// ensureConfigFile writes the example config on first run.
func ensureConfigFile() {
	if cfgFile != "" {
		return
	}
	dir, err := config.Dir()
	if err != nil {
		return
	}
	path := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(path); err == nil || !os.IsNotExist(err) {
		return
	}
	if err := config.Default().CreateExampleConfig(path); err == nil && !quiet {
		fmt.Fprintf(os.Stderr, "Created config file: %s\n", path)
	}
}

type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string {
	return e.msg
}

func exitError(code int, format string, args ...any) *exitErr {
	msg := fmt.Sprintf(format, args...)
	if msg != "" && !quiet {
		fmt.Fprintf(os.Stderr, "%s\n", msg)
	}
	return &exitErr{code: code, msg: msg}
}
