// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the arxiv-digest CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/arxiv-digest/internal/logging"
	"github.com/pdiddy/arxiv-digest/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets secrets.Secrets

// logger is the diagnostic logger built from the log.* settings.
var logger = zap.NewNop()

// rootCmd is the base command for the arxiv-digest CLI.
var rootCmd = &cobra.Command{
	Use:   "arxiv-digest",
	Short: "Personalized digests of new arXiv papers",
	Long: `arxiv-digest fetches the arXiv listing for a subject area, caches it for
the day, narrows it to a look-back window and a set of categories, and asks a
language model to score each paper against your research interests.

Run "arxiv-digest run" to build today's digest. Settings come from
arxiv-digest.yaml, ARXIV_DIGEST_* environment variables, and flags.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(logging.Options{
			Level:  viper.GetString("log.level"),
			Format: viper.GetString("log.format"),
		})
		if err != nil {
			return err
		}
		logger = l

		s, err := secrets.Load(".secrets/", logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug("loaded secrets", zap.Strings("keys", keys))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync() //nolint:errcheck // stderr sync fails on some terminals
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./arxiv-digest.yaml or ~/.config/arxiv-digest/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "directory for the listing cache and history (default ./data)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")

	viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile == "" {
		home, _ := os.UserHomeDir()
		cfgFile = findConfig(home)
	}
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	configureEnv(viper.GetViper())

	if cfgFile == "" {
		return
	}
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// findConfig returns ./arxiv-digest.yaml when it exists, otherwise
// <home>/.config/arxiv-digest/config.yaml when it exists, otherwise "".
func findConfig(home string) string {
	candidates := []string{"arxiv-digest.yaml"}
	if home != "" {
		candidates = append(candidates, filepath.Join(home, ".config", "arxiv-digest", "config.yaml"))
	}
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// configureEnv maps ARXIV_DIGEST_* variables onto config keys
// (ARXIV_DIGEST_HTTP_TIMEOUT sets http.timeout) and registers defaults.
func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix("ARXIV_DIGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
