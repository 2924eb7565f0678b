// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package relevance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"
)

// rankPromptTmpl is the prompt sent to the judge for each batch. It asks
// for a JSON array of {id, score, reason} objects.
var rankPromptTmpl = template.Must(template.New("rank").Parse(`You are a research assistant screening new preprints for a reader.

The reader describes their interests as follows:
{{.Interest}}

Below is a JSON array of papers, each with an "id", "title", and "abstract". For every paper that relates to the reader's interests, produce an object with:
- id: the paper's id, copied exactly as given
- score: an integer from 1 (barely related) to 10 (exactly what the reader is looking for)
- reason: one or two sentences explaining the match

Papers with no connection to the interests may be left out. Do not invent ids.

Respond with a JSON array only, with no text before or after it.

Example response:
[{"id": "2407.01234", "score": 8, "reason": "Proposes a sparse attention scheme, directly relevant to efficient long-context transformers."}]

Papers:
{{.Papers}}
`))

// renderPrompt executes the rank prompt template for req.
func renderPrompt(req Request) (string, error) {
	papers, err := json.MarshalIndent(req.Papers, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling papers: %w", err)
	}
	var buf bytes.Buffer
	err = rankPromptTmpl.Execute(&buf, struct {
		Interest string
		Papers   string
	}{Interest: req.Interest, Papers: string(papers)})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
