// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package relevance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// openaiAPIURL is the chat completions endpoint. Package-level var for test substitution.
var openaiAPIURL = "https://api.openai.com/v1/chat/completions"

// OpenAIJudge scores papers with the OpenAI chat completions API.
type OpenAIJudge struct {
	APIKey    string
	Model     string
	MaxTokens int
	Client    *http.Client
}

type openaiRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature"`
	Messages    []openaiMessage `json:"messages"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []struct {
		Message openaiMessage `json:"message"`
	} `json:"choices"`
}

// Rank sends one batch to OpenAI and parses the reply.
func (o *OpenAIJudge) Rank(ctx context.Context, req Request) ([]Entry, error) {
	prompt, err := renderPrompt(req)
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	bodyBytes, err := json.Marshal(openaiRequest{
		Model:     o.Model,
		MaxTokens: o.MaxTokens,
		Messages:  []openaiMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, openaiAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.APIKey)

	resp, err := httpClient(o.Client).Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling OpenAI API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("OpenAI API returned %d: %s", resp.StatusCode, string(body))
	}

	var oResp openaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&oResp); err != nil {
		return nil, fmt.Errorf("decoding OpenAI response: %w", err)
	}
	if len(oResp.Choices) == 0 {
		return nil, fmt.Errorf("OpenAI API returned no choices")
	}
	return ParseEntries(oResp.Choices[0].Message.Content)
}
