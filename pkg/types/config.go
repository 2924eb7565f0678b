// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout. Zero leaves requests unbounded.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "arxiv-digest/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// JudgeProvider names the language-model API used to score papers.
type JudgeProvider string

const (
	ProviderClaude JudgeProvider = "claude"
	ProviderOpenAI JudgeProvider = "openai"
)

// JudgeConfig holds settings for the relevance judge.
type JudgeConfig struct {
	// Provider selects claude or openai.
	Provider JudgeProvider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxTokens bounds the judge's response length (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
}

// MailConfig holds settings for digest delivery.
type MailConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	From    string `json:"from" yaml:"from" mapstructure:"from"`
	To      string `json:"to" yaml:"to" mapstructure:"to"`

	// APIKey is the SendGrid key; usually supplied through .secrets/.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`
}

// LogConfig selects the diagnostic logger's level and encoding.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// HistoryConfig controls the run log.
type HistoryConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// SkipDelivered drops papers an earlier run already delivered.
	SkipDelivered bool `json:"skip_delivered" yaml:"skip_delivered" mapstructure:"skip_delivered"`
}

// Config is the full digest configuration, loaded from
// arxiv-digest.yaml and ARXIV_DIGEST_* environment variables.
type Config struct {
	// Topic is the subject area name, e.g. "Computer Science".
	Topic string `json:"topic" yaml:"topic" mapstructure:"topic"`

	// Categories optionally narrows the listing to these category names.
	Categories []string `json:"categories" yaml:"categories" mapstructure:"categories"`

	// CategoryFilter enables the category filter (default true).
	CategoryFilter bool `json:"category_filter" yaml:"category_filter" mapstructure:"category_filter"`

	// LookbackDays is the time window in days; 1 uses today's listing only.
	LookbackDays int `json:"lookback_days" yaml:"lookback_days" mapstructure:"lookback_days"`

	// Interest is the free-text interest statement sent to the judge.
	Interest string `json:"interest" yaml:"interest" mapstructure:"interest"`

	// Threshold is the inclusive minimum judge score kept in the digest.
	Threshold int `json:"threshold" yaml:"threshold" mapstructure:"threshold"`

	// BatchSize is the number of papers per judge call (default 16).
	BatchSize int `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`

	// Limit truncates the candidate set before scoring when positive.
	Limit int `json:"limit" yaml:"limit" mapstructure:"limit"`

	// DataDir holds the listing cache and the history database.
	DataDir string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`

	HTTP    HTTPConfig    `json:"http" yaml:"http" mapstructure:"http"`
	Judge   JudgeConfig   `json:"judge" yaml:"judge" mapstructure:"judge"`
	Mail    MailConfig    `json:"mail" yaml:"mail" mapstructure:"mail"`
	Log     LogConfig     `json:"log" yaml:"log" mapstructure:"log"`
	History HistoryConfig `json:"history" yaml:"history" mapstructure:"history"`
}
