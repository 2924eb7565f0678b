// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key
// name and the file contents (trimmed) are the value. Keys missing from the
// directory fall back to the environment.
//
// Supported key files: anthropic-api-key, openai-api-key, sendgrid-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Well-known key names.
const (
	AnthropicAPIKey = "anthropic-api-key"
	OpenAIAPIKey    = "openai-api-key"
	SendGridAPIKey  = "sendgrid-api-key"
)

// Secrets maps key names to values.
type Secrets map[string]string

// Load reads all files in dir. A missing directory or missing files are not
// errors; Load returns an empty set. Unreadable files are logged and
// skipped.
func Load(dir string, log *zap.Logger) (Secrets, error) {
	if log == nil {
		log = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Secrets{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(Secrets)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Get returns the named secret, falling back to the environment variable
// derived from the name (anthropic-api-key reads ANTHROPIC_API_KEY).
func (s Secrets) Get(name string) string {
	if v := s[name]; v != "" {
		return v
	}
	return strings.TrimSpace(os.Getenv(EnvName(name)))
}

// EnvName converts a key file name to its environment variable name.
func EnvName(name string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(name))
}
