package reasoning_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patternforge/hebbian/internal/extract/reasoning"
	"github.com/patternforge/hebbian/internal/models"
)

func newTestExtractor(t *testing.T, responseBody string) *reasoning.Extractor {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(responseBody))
	}))
	t.Cleanup(server.Close)

	config := openai.DefaultConfig("test-key")
	config.BaseURL = server.URL + "/v1"
	client := openai.NewClientWithConfig(config)

	return reasoning.New(client, "", "reasoning-session-1")
}

func TestExtractParsesJSONCandidateArray(t *testing.T) {
	body := `{
		"choices": [{"message": {"role": "assistant", "content": "[{\"domain\":\"go\",\"pattern_type\":\"discovery\",\"title\":\"context cancellation leak\",\"detail\":\"a goroutine leaked because the context returned by WithCancel was never cancelled on the error path\",\"tags\":[\"concurrency\"]}]"}}]
	}`
	e := newTestExtractor(t, body)

	candidates, err := e.Extract("some reasoning trace")
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	assert.Equal(t, "go", candidates[0].Domain)
	require.NotNil(t, candidates[0].PatternType)
	assert.Equal(t, models.PatternDiscovery, *candidates[0].PatternType)
	assert.Equal(t, []string{"concurrency"}, candidates[0].Tags)
}

func TestExtractDropsCandidatesBelowMinDetailLength(t *testing.T) {
	body := `{
		"choices": [{"message": {"role": "assistant", "content": "[{\"domain\":\"go\",\"pattern_type\":\"fact\",\"title\":\"short\",\"detail\":\"too short\",\"tags\":[]}]"}}]
	}`
	e := newTestExtractor(t, body)

	candidates, err := e.Extract("some reasoning trace")
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestExtractInvalidPatternTypeLeftNil(t *testing.T) {
	body := `{
		"choices": [{"message": {"role": "assistant", "content": "[{\"domain\":\"go\",\"pattern_type\":\"not-a-real-type\",\"title\":\"t\",\"detail\":\"this detail is long enough to pass the minimum length floor\",\"tags\":[]}]"}}]
	}`
	e := newTestExtractor(t, body)

	candidates, err := e.Extract("some reasoning trace")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Nil(t, candidates[0].PatternType)
}

func TestExtractEmptyArrayReturnsNoCandidates(t *testing.T) {
	body := `{"choices": [{"message": {"role": "assistant", "content": "[]"}}]}`
	e := newTestExtractor(t, body)

	candidates, err := e.Extract("nothing durable here")
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestExtractContextPropagatesCancellation(t *testing.T) {
	e := newTestExtractor(t, `{"choices": [{"message": {"role": "assistant", "content": "[]"}}]}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.ExtractContext(ctx, "reasoning trace")
	assert.Error(t, err)
}
