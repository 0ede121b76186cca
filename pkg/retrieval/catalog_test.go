package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalog(t *testing.T) {
	catalog, err := LoadCatalog()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(catalog.Titles()), 5)

	for _, title := range catalog.Titles() {
		entry, found := catalog.Lookup(title)
		require.True(t, found, "catalog title %q must look itself up", title)
		assert.NotEmpty(t, entry.Body)
		assert.NotEmpty(t, entry.Moral)
		assert.NotEmpty(t, entry.Provenance)
		assert.Positive(t, entry.WordCount())
	}
}

func TestLookupForgiving(t *testing.T) {
	catalog, err := LoadCatalog()
	require.NoError(t, err)

	tests := []struct {
		query string
		title string
	}{
		{"The Tortoise and the Hare", "The Tortoise and the Hare"},
		{"tortoise and hare", "The Tortoise and the Hare"},
		{"  THE UGLY DUCKLING  ", "The Ugly Duckling"},
		{"tell me the story of goldilocks", "Goldilocks and the Three Bears"},
		{"the boy who cried wolf", "The Boy Who Cried Wolf"},
		{"lion and the mouse", "The Lion and the Mouse"},
	}

	for _, tt := range tests {
		entry, found := catalog.Lookup(tt.query)
		require.True(t, found, "query %q should match", tt.query)
		assert.Equal(t, tt.title, entry.Title, "query %q", tt.query)
	}
}

func TestLookupMiss(t *testing.T) {
	catalog, err := LoadCatalog()
	require.NoError(t, err)

	for _, query := range []string{"", "the quantum dragon chronicles", "a brand new story"} {
		_, found := catalog.Lookup(query)
		assert.False(t, found, "query %q should miss", query)
	}
}
