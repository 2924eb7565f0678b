// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package digest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/arxiv-digest/internal/httputil"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// sendgridAPIURL is the v3 mail send endpoint. Package-level var for test substitution.
var sendgridAPIURL = "https://api.sendgrid.com/v3/mail/send"

// subjectLayout formats the mail subject date, e.g. "10 Jul 2024".
const subjectLayout = "Personalized arXiv Digest, 02 Jan 2006"

// Message is one HTML mail.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Mailer delivers a digest.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Subject returns the mail subject for the digest produced at t.
func Subject(t time.Time) string {
	return t.In(types.ReferenceLocation()).Format(subjectLayout)
}

// SendGridMailer delivers mail through the SendGrid v3 API. Rate-limited
// requests are retried with backoff.
type SendGridMailer struct {
	APIKey string
	Client *http.Client
	Log    *zap.Logger
}

type sgAddress struct {
	Email string `json:"email"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgRequest struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

// Send posts msg to SendGrid. Any non-2xx status is an error.
func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	if m.APIKey == "" {
		return fmt.Errorf("sendgrid: no API key configured")
	}
	if msg.From == "" || msg.To == "" {
		return fmt.Errorf("sendgrid: from and to addresses are required")
	}

	body, err := json.Marshal(sgRequest{
		Personalizations: []sgPersonalization{{To: []sgAddress{{Email: msg.To}}}},
		From:             sgAddress{Email: msg.From},
		Subject:          msg.Subject,
		Content:          []sgContent{{Type: "text/html", Value: msg.HTML}},
	})
	if err != nil {
		return fmt.Errorf("marshaling mail: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendgridAPIURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.APIKey)

	client := m.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := httputil.DoWithRetry(ctx, client, req, 0, m.Log)
	if err != nil {
		return fmt.Errorf("calling SendGrid API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("SendGrid API returned %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}
