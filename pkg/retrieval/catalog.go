// Package retrieval serves known children's stories from an embedded catalog.
// The catalog answers retrieval requests without an LLM round trip; misses
// fall through to the model-backed retriever stage.
package retrieval

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"starlit/pkg/utils"
)

//go:embed classics.yaml
var classicsYAML []byte

// Entry is one catalog story.
type Entry struct {
	Title      string   `yaml:"title"`
	Aliases    []string `yaml:"aliases"`
	Provenance string   `yaml:"provenance"`
	Moral      string   `yaml:"moral"`
	Body       string   `yaml:"body"`
}

// WordCount returns the length of the story body in words.
func (e *Entry) WordCount() int {
	return utils.CountWords(e.Body)
}

type catalogFile struct {
	Stories []Entry `yaml:"stories"`
}

// Catalog is an in-memory index of classic stories.
type Catalog struct {
	entries []Entry
}

// LoadCatalog parses the embedded classics catalog.
func LoadCatalog() (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(classicsYAML, &file); err != nil {
		return nil, fmt.Errorf("failed to parse classics catalog: %w", err)
	}
	if len(file.Stories) == 0 {
		return nil, fmt.Errorf("classics catalog is empty")
	}
	return &Catalog{entries: file.Stories}, nil
}

// Titles returns all catalog titles.
func (c *Catalog) Titles() []string {
	titles := make([]string, len(c.entries))
	for i := range c.entries {
		titles[i] = c.entries[i].Title
	}
	return titles
}

// Lookup finds a catalog entry matching the query. Matching is forgiving:
// exact title, alias, or word overlap with the title all count.
func (c *Catalog) Lookup(query string) (*Entry, bool) {
	normalized := normalize(query)
	if normalized == "" {
		return nil, false
	}

	// Exact title or alias match.
	for i := range c.entries {
		e := &c.entries[i]
		if normalize(e.Title) == normalized {
			return e, true
		}
		for _, alias := range e.Aliases {
			if normalize(alias) == normalized {
				return e, true
			}
		}
	}

	// Substring match in either direction.
	for i := range c.entries {
		e := &c.entries[i]
		title := normalize(e.Title)
		if strings.Contains(normalized, title) || strings.Contains(title, normalized) {
			return e, true
		}
		for _, alias := range e.Aliases {
			a := normalize(alias)
			if strings.Contains(normalized, a) || strings.Contains(a, normalized) {
				return e, true
			}
		}
	}

	// Word overlap: every significant query word appears in the title.
	queryWords := significantWords(normalized)
	if len(queryWords) == 0 {
		return nil, false
	}
	for i := range c.entries {
		e := &c.entries[i]
		titleWords := wordSet(normalize(e.Title))
		matched := 0
		for _, w := range queryWords {
			if titleWords[w] {
				matched++
			}
		}
		if matched == len(queryWords) {
			return e, true
		}
	}

	return nil, false
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, ".!?\"'")
	return strings.Join(strings.Fields(s), " ")
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "of": true,
	"story": true, "tale": true, "about": true, "tell": true, "me": true,
}

func significantWords(s string) []string {
	var out []string
	for _, w := range strings.Fields(s) {
		if !stopWords[w] {
			out = append(out, w)
		}
	}
	return out
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}
