// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package papers

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/arxiv-digest/pkg/types"
)

//go:embed categories.yaml
var catalogYAML []byte

// Topic is a subject area with its archive code and category whitelist.
type Topic struct {
	Name       string   `yaml:"name"`
	Code       string   `yaml:"code"`
	Umbrella   bool     `yaml:"umbrella,omitempty"`
	Categories []string `yaml:"categories,omitempty"`
}

type catalogFile struct {
	Topics []Topic `yaml:"topics"`
}

// catalog is the parsed whitelist keyed by topic name.
var catalog = mustLoadCatalog(catalogYAML)

func mustLoadCatalog(data []byte) map[string]Topic {
	topics, err := loadCatalog(data)
	if err != nil {
		panic(err)
	}
	return topics
}

func loadCatalog(data []byte) (map[string]Topic, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing category catalog: %w", err)
	}
	topics := make(map[string]Topic, len(f.Topics))
	for _, t := range f.Topics {
		if t.Name == "" || t.Code == "" {
			return nil, fmt.Errorf("category catalog: topic %q has no code", t.Name)
		}
		if _, dup := topics[t.Name]; dup {
			return nil, fmt.Errorf("category catalog: duplicate topic %q", t.Name)
		}
		topics[t.Name] = t
	}
	return topics, nil
}

// ResolveTopic looks up a subject area by name. Umbrella topics and unknown
// names fail with *types.InvalidTopicError.
func ResolveTopic(name string) (Topic, error) {
	t, ok := catalog[strings.TrimSpace(name)]
	if !ok {
		return Topic{}, &types.InvalidTopicError{Topic: name, Reason: "unknown subject area"}
	}
	if t.Umbrella {
		return Topic{}, &types.InvalidTopicError{Topic: name, Reason: "choose one of its sub-archives"}
	}
	return t, nil
}

// TopicNames returns every known topic name in sorted order.
func TopicNames() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupTopic returns a topic by name, umbrella topics included.
func LookupTopic(name string) (Topic, bool) {
	t, ok := catalog[strings.TrimSpace(name)]
	return t, ok
}

// ValidateCategories checks every requested category against the topic's
// whitelist and names all offenders in one *types.InvalidCategoryError.
func ValidateCategories(t Topic, requested []string) error {
	allowed := make(map[string]bool, len(t.Categories))
	for _, c := range t.Categories {
		allowed[normalize(c)] = true
	}

	var invalid []string
	for _, c := range requested {
		if !allowed[normalize(c)] {
			invalid = append(invalid, c)
		}
	}
	if len(invalid) > 0 {
		return &types.InvalidCategoryError{Topic: t.Name, Invalid: invalid}
	}
	return nil
}
