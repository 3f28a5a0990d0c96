package llmorch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoOpClient_ReturnsCannedResponse(t *testing.T) {
	client := &NoOpClient{Response: `{"article_id":"x"}`}
	out, err := client.Enrich(context.Background(), "any prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"article_id":"x"}`, out)
}

func TestNewDeepSeekClient_DefaultsBaseURLWhenEmpty(t *testing.T) {
	client := NewDeepSeekClient("sk-test", "", DefaultConfig(), NewPrometheusMetrics())
	require.NotNil(t, client)
	assert.Equal(t, "deepseek-chat", client.model)
	assert.Equal(t, "https://api.deepseek.com/v1", client.baseURL)
}

func TestNewDeepSeekClient_HonorsExplicitBaseURL(t *testing.T) {
	client := NewDeepSeekClient("sk-test", "https://custom.example.com/v1", DefaultConfig(), NewPrometheusMetrics())
	require.NotNil(t, client)
	assert.Equal(t, "https://custom.example.com/v1", client.baseURL)
}
