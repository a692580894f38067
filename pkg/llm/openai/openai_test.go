package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webpilot-ai/webpilot/pkg/types"
)

func TestNewProvider_RequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewProvider("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestNewProvider_Defaults(t *testing.T) {
	t.Setenv("OPENAI_BASE_URL", "")

	p, err := NewProvider("test-key")
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, p.GetModel())

	info := p.GetModelInfo()
	require.NotNil(t, info)
	assert.Equal(t, "openai", info.Provider)
	assert.Equal(t, DefaultModel, info.Name)
	assert.True(t, info.SupportsStreaming)
}

func TestNewProvider_Options(t *testing.T) {
	p, err := NewProvider("test-key",
		WithModel("gpt-4o-mini"),
		WithBaseURL("http://localhost:8080/v1"),
	)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", p.GetModel())
	assert.Equal(t, "http://localhost:8080/v1", p.baseURL)
	assert.Equal(t, "http://localhost:8080/v1", p.GetModelInfo().Metadata["base_url"])
}

func TestProvider_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "text/event-stream")
		lines := []string{
			`data: {"choices":[{"delta":{"role":"assistant","content":""}}]}`,
			`data: {"choices":[{"delta":{"content":"Hello"}}]}`,
			`: keep-alive`,
			`data: {"choices":[{"delta":{"content":", world"}}]}`,
			`data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`,
			`data: [DONE]`,
		}
		for _, line := range lines {
			_, _ = w.Write([]byte(line + "\n\n"))
		}
	}))
	defer srv.Close()

	p, err := NewProvider("test-key", WithBaseURL(srv.URL))
	require.NoError(t, err)

	msg, err := p.Complete(context.Background(), []*types.Message{
		types.NewUserMessage("hi"),
	})
	require.NoError(t, err)
	assert.Equal(t, types.RoleAssistant, msg.Role)
	assert.Equal(t, "Hello, world", msg.Content)
}

func TestProvider_CompleteAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid model"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	p, err := NewProvider("test-key", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), []*types.Message{
		types.NewUserMessage("hi"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestConvertToOpenAIMessages(t *testing.T) {
	msgs := convertToOpenAIMessages([]*types.Message{
		types.NewSystemMessage("be brief"),
		types.NewUserMessage("hello"),
		types.NewAssistantMessage("hi"),
	})
	require.Len(t, msgs, 3)

	data, err := json.Marshal(msgs)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"role":"system"`)
	assert.Contains(t, string(data), `"role":"user"`)
	assert.Contains(t, string(data), `"role":"assistant"`)
}
