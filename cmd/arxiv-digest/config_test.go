// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/arxiv-digest/internal/history"
	"github.com/pdiddy/arxiv-digest/internal/relevance"
	"github.com/pdiddy/arxiv-digest/internal/secrets"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

func newViper(t *testing.T, yamlConfig string) *viper.Viper {
	t.Helper()
	v := viper.New()
	configureEnv(v)
	if yamlConfig != "" {
		path := filepath.Join(t.TempDir(), "arxiv-digest.yaml")
		require.NoError(t, os.WriteFile(path, []byte(yamlConfig), 0o644))
		v.SetConfigFile(path)
		require.NoError(t, v.ReadInConfig())
	}
	return v
}

func TestDecodeConfig_Defaults(t *testing.T) {
	cfg, err := decodeConfig(newViper(t, ""))
	require.NoError(t, err)

	assert.True(t, cfg.CategoryFilter)
	assert.Equal(t, 7, cfg.LookbackDays)
	assert.Equal(t, 7, cfg.Threshold)
	assert.Equal(t, relevance.DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, 60*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, types.ProviderClaude, cfg.Judge.Provider)
	assert.True(t, cfg.History.Enabled)
	assert.False(t, cfg.History.SkipDelivered)
	assert.NoError(t, validateConfig(cfg))
}

func TestDecodeConfig_FileAndEnvironment(t *testing.T) {
	t.Setenv("ARXIV_DIGEST_THRESHOLD", "9")
	t.Setenv("ARXIV_DIGEST_HTTP_TIMEOUT", "5s")

	v := newViper(t, `
topic: Computer Science
categories:
  - Machine Learning
  - Robotics
category_filter: false
lookback_days: 1
interest: sparse attention
judge:
  provider: openai
  model: gpt-4.1
mail:
  enabled: true
  to: me@example.com
`)
	cfg, err := decodeConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "Computer Science", cfg.Topic)
	assert.Equal(t, []string{"Machine Learning", "Robotics"}, cfg.Categories)
	assert.False(t, cfg.CategoryFilter)
	assert.Equal(t, 1, cfg.LookbackDays)
	assert.Equal(t, 9, cfg.Threshold)
	assert.Equal(t, 5*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, types.ProviderOpenAI, cfg.Judge.Provider)
	assert.Equal(t, "gpt-4.1", cfg.Judge.Model)
	assert.True(t, cfg.Mail.Enabled)
	assert.Equal(t, "me@example.com", cfg.Mail.To)
}

func TestValidateConfig(t *testing.T) {
	base, err := decodeConfig(newViper(t, ""))
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*types.Config)
		errMsg string
	}{
		{"zero lookback", func(c *types.Config) { c.LookbackDays = 0 }, "lookback_days"},
		{"negative batch", func(c *types.Config) { c.BatchSize = -1 }, "batch_size"},
		{"negative limit", func(c *types.Config) { c.Limit = -3 }, "limit"},
		{"unknown provider", func(c *types.Config) { c.Judge.Provider = "bard" }, "judge.provider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.ErrorContains(t, validateConfig(cfg), tt.errMsg)
		})
	}
}

func TestApplyFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	addSelectionFlags(cmd)
	cmd.Flags().StringSlice("category", nil, "")
	cmd.Flags().Bool("no-category-filter", false, "")
	cmd.Flags().Int("threshold", 0, "")
	cmd.Flags().Bool("skip-delivered", false, "")

	require.NoError(t, cmd.Flags().Set("topic", "Statistics"))
	require.NoError(t, cmd.Flags().Set("category", "Methodology"))
	require.NoError(t, cmd.Flags().Set("no-category-filter", "true"))
	require.NoError(t, cmd.Flags().Set("skip-delivered", "true"))

	cfg := types.Config{Topic: "Computer Science", Threshold: 7, LookbackDays: 7, CategoryFilter: true}
	applyFlags(cmd, &cfg)

	assert.Equal(t, "Statistics", cfg.Topic)
	assert.Equal(t, []string{"Methodology"}, cfg.Categories)
	assert.False(t, cfg.CategoryFilter)
	assert.True(t, cfg.History.SkipDelivered)
	assert.Equal(t, 7, cfg.Threshold, "unset flags leave config alone")
	assert.Equal(t, 7, cfg.LookbackDays)
}

func TestJudgeAPIKey(t *testing.T) {
	s := secrets.Secrets{secrets.AnthropicAPIKey: "ant", secrets.OpenAIAPIKey: "oai"}

	assert.Equal(t, "ant", judgeAPIKey(types.JudgeConfig{Provider: types.ProviderClaude}, s))
	assert.Equal(t, "oai", judgeAPIKey(types.JudgeConfig{Provider: types.ProviderOpenAI}, s))
	assert.Equal(t, "explicit", judgeAPIKey(types.JudgeConfig{Provider: types.ProviderOpenAI, APIKey: "explicit"}, s))
}

func TestNewRunner_JudgeOnlyWithInterest(t *testing.T) {
	cfg := types.Config{DataDir: t.TempDir(), Judge: types.JudgeConfig{Provider: types.ProviderClaude}}

	r, err := newRunner(cfg, secrets.Secrets{}, nil)
	require.NoError(t, err)
	assert.Nil(t, r.Judge)

	t.Setenv("ANTHROPIC_API_KEY", "")
	cfg.Interest = "graph learning"
	_, err = newRunner(cfg, secrets.Secrets{}, nil)
	assert.ErrorContains(t, err, "no API key")

	r, err = newRunner(cfg, secrets.Secrets{secrets.AnthropicAPIKey: "k"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, r.Judge)
}

func TestWriteCategories(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeCategories(&buf, "Statistics"))
	assert.Contains(t, buf.String(), "Methodology")

	buf.Reset()
	require.NoError(t, writeTopics(&buf))
	assert.Contains(t, buf.String(), "Computer Science")
	assert.Contains(t, buf.String(), "choose a sub-archive")

	var ite *types.InvalidTopicError
	assert.ErrorAs(t, writeCategories(&buf, "Alchemy"), &ite)
}

func TestWriteRuns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRuns(&buf, nil))
	assert.Contains(t, buf.String(), "No runs")

	buf.Reset()
	require.NoError(t, writeRuns(&buf, []history.Run{{
		ID:        "run-1",
		StartedAt: time.Date(2024, 7, 10, 13, 0, 0, 0, time.UTC),
		Topic:     "Statistics",
		Window:    "new",
		Kept:      3,
		Mailed:    true,
	}}))
	out := buf.String()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "2024-07-10 09:00")
	assert.Contains(t, out, "yes")
}

func TestFindConfig(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	home := t.TempDir()

	assert.Empty(t, findConfig(home))

	homeConfig := filepath.Join(home, ".config", "arxiv-digest", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(homeConfig), 0o755))
	require.NoError(t, os.WriteFile(homeConfig, []byte("topic: Statistics\n"), 0o644))
	assert.Equal(t, homeConfig, findConfig(home))

	require.NoError(t, os.WriteFile("arxiv-digest.yaml", []byte("topic: Physics\n"), 0o644))
	assert.Equal(t, "arxiv-digest.yaml", findConfig(home))
	assert.Equal(t, "arxiv-digest.yaml", findConfig(""))
}
