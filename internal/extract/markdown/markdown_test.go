package markdown_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patternforge/hebbian/internal/extract/markdown"
	"github.com/patternforge/hebbian/internal/models"
)

func TestExtractHeadingSections(t *testing.T) {
	doc := `# Always run gofmt before committing
- run gofmt -w on every changed file before opening a pull request
- this keeps diffs free of pure formatting noise

## Prefer table-driven tests
Table-driven tests keep related cases in one place and make it easy to add
new cases without duplicating setup code.
`
	e := markdown.New("go", "style-guide.md")
	candidates, err := e.Extract(doc)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, "Always run gofmt before committing", candidates[0].Title)
	assert.Equal(t, "go", candidates[0].Domain)
	assert.Equal(t, "style-guide.md", candidates[0].Source)
	assert.Contains(t, candidates[0].Detail, "run gofmt -w")

	assert.Equal(t, "Prefer table-driven tests", candidates[1].Title)
}

func TestExtractDropsSectionsBelowMinDetailLength(t *testing.T) {
	doc := "# Too short\nshort\n"
	e := markdown.New("go", "notes.md")
	candidates, err := e.Extract(doc)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestExtractSkipsLowSignalLines(t *testing.T) {
	doc := `# A real heading with enough surrounding detail to pass
TODO: revisit this later, it is not done
this is the actual detail text that should make it into the candidate body
`
	e := markdown.New("go", "notes.md")
	candidates, err := e.Extract(doc)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.NotContains(t, candidates[0].Detail, "revisit this later")
}

func TestExtractInfersPatternTypeFromHeading(t *testing.T) {
	doc := "# This is a rule about formatting your code consistently\nalways gofmt before you commit anything at all\n"
	e := markdown.New("go", "notes.md")
	candidates, err := e.Extract(doc)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.NotNil(t, candidates[0].PatternType)
	assert.Equal(t, models.PatternRule, *candidates[0].PatternType)
}

func TestExtractNoHeadingProducesNoCandidates(t *testing.T) {
	e := markdown.New("go", "notes.md")
	candidates, err := e.Extract("just a line of text with no heading at all here")
	require.NoError(t, err)
	assert.Empty(t, candidates)
}
