// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/arxiv-digest/internal/cache"
	"github.com/pdiddy/arxiv-digest/internal/listing"
	"github.com/pdiddy/arxiv-digest/internal/pipeline"
	"github.com/pdiddy/arxiv-digest/internal/relevance"
	"github.com/pdiddy/arxiv-digest/internal/secrets"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultUserAgent = "arxiv-digest/0.1"
	defaultDataDir   = "data"
)

// setDefaults registers every config key so environment variables can
// override keys absent from the config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("topic", "")
	v.SetDefault("categories", []string{})
	v.SetDefault("category_filter", true)
	v.SetDefault("lookback_days", 7)
	v.SetDefault("interest", "")
	v.SetDefault("threshold", 7)
	v.SetDefault("batch_size", relevance.DefaultBatchSize)
	v.SetDefault("limit", 0)
	v.SetDefault("data_dir", defaultDataDir)
	v.SetDefault("http.timeout", defaultTimeout)
	v.SetDefault("http.user_agent", defaultUserAgent)
	v.SetDefault("judge.provider", string(types.ProviderClaude))
	v.SetDefault("judge.model", "")
	v.SetDefault("judge.api_key", "")
	v.SetDefault("judge.max_tokens", 4096)
	v.SetDefault("mail.enabled", false)
	v.SetDefault("mail.from", "")
	v.SetDefault("mail.to", "")
	v.SetDefault("mail.api_key", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.skip_delivered", false)
}

// decodeConfig decodes the merged settings without validating them.
func decodeConfig(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

func validateConfig(cfg types.Config) error {
	if cfg.LookbackDays < 1 {
		return fmt.Errorf("lookback_days must be at least 1, got %d", cfg.LookbackDays)
	}
	if cfg.BatchSize < 0 {
		return fmt.Errorf("batch_size must not be negative, got %d", cfg.BatchSize)
	}
	if cfg.Limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", cfg.Limit)
	}
	switch cfg.Judge.Provider {
	case types.ProviderClaude, types.ProviderOpenAI:
	default:
		return fmt.Errorf("judge.provider must be claude or openai, got %q", cfg.Judge.Provider)
	}
	return nil
}

// addSelectionFlags registers the flags shared by commands that load a
// listing.
func addSelectionFlags(cmd *cobra.Command) {
	cmd.Flags().String("topic", "", `subject area, e.g. "Computer Science"`)
	cmd.Flags().Int("lookback-days", 0, "look-back window in days; 1 uses today's listing only")
}

// applyFlags overlays explicitly set command flags onto cfg. Flags a
// command does not define are ignored.
func applyFlags(cmd *cobra.Command, cfg *types.Config) {
	f := cmd.Flags()
	if f.Changed("topic") {
		cfg.Topic, _ = f.GetString("topic")
	}
	if f.Changed("lookback-days") {
		cfg.LookbackDays, _ = f.GetInt("lookback-days")
	}
	if f.Changed("category") {
		cfg.Categories, _ = f.GetStringSlice("category")
	}
	if f.Changed("no-category-filter") {
		off, _ := f.GetBool("no-category-filter")
		cfg.CategoryFilter = !off
	}
	if f.Changed("interest") {
		cfg.Interest, _ = f.GetString("interest")
	}
	if f.Changed("threshold") {
		cfg.Threshold, _ = f.GetInt("threshold")
	}
	if f.Changed("limit") {
		cfg.Limit, _ = f.GetInt("limit")
	}
	if f.Changed("skip-delivered") {
		cfg.History.SkipDelivered, _ = f.GetBool("skip-delivered")
	}
	if f.Changed("mail") {
		cfg.Mail.Enabled, _ = f.GetBool("mail")
	}
}

// commandConfig loads the config and applies cmd's flags.
func commandConfig(cmd *cobra.Command) (types.Config, error) {
	cfg, err := decodeConfig(viper.GetViper())
	if err != nil {
		return cfg, err
	}
	applyFlags(cmd, &cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	if cfg.Topic == "" {
		return cfg, fmt.Errorf("no topic configured: set topic in arxiv-digest.yaml or pass --topic")
	}
	return cfg, nil
}

// judgeAPIKey picks the key for the configured provider: explicit config
// first, then .secrets/ and the environment.
func judgeAPIKey(cfg types.JudgeConfig, s secrets.Secrets) string {
	if cfg.APIKey != "" {
		return cfg.APIKey
	}
	if cfg.Provider == types.ProviderOpenAI {
		return s.Get(secrets.OpenAIAPIKey)
	}
	return s.Get(secrets.AnthropicAPIKey)
}

// newRunner wires the pipeline stages for cfg. A judge is built only when
// an interest is configured.
func newRunner(cfg types.Config, s secrets.Secrets, log *zap.Logger) (*pipeline.Runner, error) {
	client := &http.Client{Timeout: cfg.HTTP.Timeout}
	now := time.Now

	r := &pipeline.Runner{
		Source: &listing.Fetcher{Client: client, UserAgent: cfg.HTTP.UserAgent, Now: now, Log: log},
		Cache:  &cache.Store{Dir: cfg.DataDir, Now: now, Log: log},
		Now:    now,
		Log:    log,
	}

	if cfg.Interest != "" {
		jc := cfg.Judge
		jc.APIKey = judgeAPIKey(cfg.Judge, s)
		judge, err := relevance.New(jc, client)
		if err != nil {
			return nil, err
		}
		r.Judge = judge
	}
	return r, nil
}
