// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package digest renders a scored paper set for people: an HTML body for
// mail, a terminal table, and delivery through SendGrid.
package digest

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// bodyTmpl renders one block per paper, separated by blank lines. Score and
// reason appear only on annotated papers.
var bodyTmpl = template.Must(template.New("digest").Parse(
	`{{range $i, $p := .}}{{if $i}}<br><br>{{end}}` +
		`Title: <a href="{{$p.MainPage}}">{{$p.Title}}</a>` +
		`<br>Authors: {{$p.Authors}}` +
		`{{with $p.Relevance}}<br>Score: {{.Score}}<br>Reason: {{.Reason}}{{end}}` +
		`{{end}}`))

// RenderHTML returns the digest body for papers in their given order.
// Text fields are HTML-escaped.
func RenderHTML(papers []types.Paper) (string, error) {
	var buf bytes.Buffer
	if err := bodyTmpl.Execute(&buf, papers); err != nil {
		return "", fmt.Errorf("rendering digest: %w", err)
	}
	return buf.String(), nil
}
