// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package relevance

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// Judge abstracts the language-model API so tests can supply a mock. It
// scores one batch of papers against an interest statement. The returned
// entries may omit papers, arrive in any order, and name IDs that were
// never sent.
type Judge interface {
	Rank(ctx context.Context, req Request) ([]Entry, error)
}

// Request is the payload for one judge call.
type Request struct {
	Interest string         `json:"interest"`
	Papers   []RequestPaper `json:"papers"`
}

// RequestPaper carries the fields the judge needs to assess a paper.
type RequestPaper struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
	Subjects string `json:"subjects,omitempty"`
}

// NewRequest builds the judge payload for a batch.
func NewRequest(interest string, batch []types.Paper) Request {
	req := Request{Interest: interest, Papers: make([]RequestPaper, len(batch))}
	for i, p := range batch {
		req.Papers[i] = RequestPaper{ID: p.ID, Title: p.Title, Abstract: p.Abstract, Subjects: p.Subjects}
	}
	return req
}

// Entry is one judge verdict. Score keeps its raw JSON form because models
// return integers, floats, and numeric strings interchangeably; Reconcile
// coerces it.
type Entry struct {
	ID     string
	Score  json.RawMessage
	Reason string
}

// UnmarshalJSON accepts an object with id, score, and reason. The id and
// reason may be strings or bare JSON scalars.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID     json.RawMessage `json:"id"`
		Score  json.RawMessage `json:"score"`
		Reason json.RawMessage `json:"reason"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.ID = scalarText(raw.ID)
	e.Score = raw.Score
	e.Reason = scalarText(raw.Reason)
	return nil
}

// scalarText renders a JSON scalar as plain text: strings are unquoted,
// numbers and booleans kept verbatim, null and absent values empty.
func scalarText(raw json.RawMessage) string {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return ""
	}
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return strings.TrimSpace(s)
		}
	}
	return text
}

// ParseEntries extracts judge entries from a model's text reply. The reply
// may wrap the JSON in prose or code fences. The top-level value must be an
// array, or an object holding one under "papers", "results", or "scores".
// Decoding starts at each '[' or '{' in turn, so bracketed prose ahead of
// the payload is passed over; the first offset that yields entries wins and
// the error from the first offset is returned when none does. Array
// elements that are not objects are skipped.
func ParseEntries(text string) ([]Entry, error) {
	var firstErr error
	for offset := 0; offset < len(text); {
		i := strings.IndexAny(text[offset:], "[{")
		if i < 0 {
			break
		}
		start := offset + i
		entries, err := decodeEntries(text[start:])
		if err == nil {
			return entries, nil
		}
		if firstErr == nil {
			firstErr = err
		}
		offset = start + 1
	}
	if firstErr == nil {
		return nil, fmt.Errorf("no JSON value in judge response")
	}
	return nil, firstErr
}

// decodeEntries decodes the JSON value at the start of text as a list of
// entries.
func decodeEntries(text string) ([]Entry, error) {
	var top json.RawMessage
	if err := json.NewDecoder(strings.NewReader(text)).Decode(&top); err != nil {
		return nil, fmt.Errorf("decoding judge response: %w", err)
	}

	list := top
	if top[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(top, &obj); err != nil {
			return nil, fmt.Errorf("decoding judge response: %w", err)
		}
		list = nil
		for _, key := range []string{"papers", "results", "scores"} {
			if v, ok := obj[key]; ok {
				list = v
				break
			}
		}
		if list == nil {
			return nil, fmt.Errorf("judge response object has no papers array")
		}
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(list, &elems); err != nil {
		return nil, fmt.Errorf("judge response is not an array: %w", err)
	}

	entries := make([]Entry, 0, len(elems))
	for _, el := range elems {
		var e Entry
		if err := json.Unmarshal(el, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	if len(elems) > 0 && len(entries) == 0 {
		return nil, fmt.Errorf("judge response array holds no objects")
	}
	return entries, nil
}

// CoerceScore converts a raw judge score to an integer. Integers, floats,
// and numeric strings are accepted; fractions are truncated. Anything else
// is the minimum score, 0.
func CoerceScore(raw json.RawMessage) int {
	text := scalarText(raw)
	if n, err := strconv.Atoi(text); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > 1e9 {
		return 0
	}
	return int(f)
}

// New creates a Judge for the configured provider.
func New(cfg types.JudgeConfig, client *http.Client) (Judge, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("judge %q: no API key configured", cfg.Provider)
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	switch cfg.Provider {
	case types.ProviderClaude, "":
		model := cfg.Model
		if model == "" {
			model = "claude-sonnet-4-5-20250929"
		}
		return &ClaudeJudge{APIKey: cfg.APIKey, Model: model, MaxTokens: maxTokens, Client: client}, nil
	case types.ProviderOpenAI:
		model := cfg.Model
		if model == "" {
			model = "gpt-4o-mini"
		}
		return &OpenAIJudge{APIKey: cfg.APIKey, Model: model, MaxTokens: maxTokens, Client: client}, nil
	default:
		return nil, fmt.Errorf("unknown judge provider %q (valid: claude, openai)", cfg.Provider)
	}
}
