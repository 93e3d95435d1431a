package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testClient(t *testing.T, endpoint string) *Client {
	t.Helper()
	return NewClient(Config{
		Endpoint: endpoint,
		APIKey:   "secret",
		Model:    "gpt-4o",
		Timeout:  5 * time.Second,
	}, zap.NewNop())
}

func jsonHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatResponses, DetectFormat("https://example.openai.azure.com/openai/responses"))
	assert.Equal(t, FormatResponses, DetectFormat("https://api.openai.com/v1/responses?api-version=preview"))
	assert.Equal(t, FormatChatCompletions, DetectFormat("https://api.openai.com/v1/chat/completions"))
	assert.Equal(t, FormatChatCompletions, DetectFormat("http://localhost:8080/v1"))
}

func TestFormatFixedAtConstruction(t *testing.T) {
	c := testClient(t, "https://example.com/openai/responses")
	assert.Equal(t, FormatResponses, c.Format())

	c = testClient(t, "https://example.com/v1/chat/completions")
	assert.Equal(t, FormatChatCompletions, c.Format())
}

func TestBuildRequestBodyChat(t *testing.T) {
	c := NewClient(Config{
		Endpoint:        "https://api.openai.com/v1/chat/completions",
		APIKey:          "k",
		Model:           "gpt-4o",
		ReasoningEffort: "high",
		MaxTokens:       256,
	}, nil)

	data, err := json.Marshal(c.buildRequestBody("ping", true))
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))

	assert.Equal(t, "gpt-4o", body["model"])
	assert.Equal(t, true, body["stream"])
	assert.Equal(t, "high", body["reasoning_effort"])
	assert.Equal(t, float64(256), body["max_tokens"])

	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 1)
	msg := msgs[0].(map[string]any)
	assert.Equal(t, "user", msg["role"])
	assert.Equal(t, "ping", msg["content"])

	_, hasInput := body["input"]
	assert.False(t, hasInput)
}

func TestBuildRequestBodyChatOmitsUnsetFields(t *testing.T) {
	c := NewClient(Config{
		Endpoint: "https://api.openai.com/v1/chat/completions",
		APIKey:   "k",
		Model:    "gpt-4o",
	}, nil)

	data, err := json.Marshal(c.buildRequestBody("ping", false))
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))

	_, hasEffort := body["reasoning_effort"]
	assert.False(t, hasEffort)
	_, hasMax := body["max_tokens"]
	assert.False(t, hasMax)
	assert.Equal(t, false, body["stream"])
}

func TestBuildRequestBodyResponses(t *testing.T) {
	c := NewClient(Config{
		Endpoint:  "https://example.openai.azure.com/openai/responses",
		APIKey:    "k",
		Model:     "o4-mini",
		MaxTokens: 128,
		NoCache:   true,
	}, nil)

	data, err := json.Marshal(c.buildRequestBody("ping", false))
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))

	assert.Equal(t, "o4-mini", body["model"])
	assert.Equal(t, "ping", body["input"])
	assert.Equal(t, false, body["stream"])
	assert.Equal(t, float64(128), body["max_output_tokens"])
	assert.Equal(t, false, body["store"])

	// No effort configured: the key must be absent, not null.
	_, hasReasoning := body["reasoning"]
	assert.False(t, hasReasoning)
	_, hasMessages := body["messages"]
	assert.False(t, hasMessages)
}

func TestCallChatSuccess(t *testing.T) {
	var gotAuth, gotAPIKey, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAPIKey = r.Header.Get("api-key")
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hi"}}],"usage":{"prompt_tokens":5,"completion_tokens":1,"total_tokens":6}}`))
	}))
	defer server.Close()

	c := testClient(t, server.URL+"/v1/chat/completions")
	comp, err := c.Call(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, "hi", comp.Content)
	assert.Equal(t, 5, comp.Tokens.PromptTokens)
	assert.Equal(t, 1, comp.Tokens.CompletionTokens)
	assert.Equal(t, 6, comp.Tokens.TotalTokens)
	assert.Greater(t, comp.Timing.TotalLatencyMS, 0.0)
	assert.Nil(t, comp.Timing.TTFTMS)
	assert.Nil(t, comp.Timing.TTFRMS)

	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "secret", gotAPIKey)
	assert.Equal(t, "application/json", gotContentType)
}

func TestCallResponsesSuccess(t *testing.T) {
	body := `{
		"output": [
			{"type": "reasoning", "content": []},
			{"type": "message", "content": [
				{"type": "output_text", "text": "hel"},
				{"type": "output_text", "text": "lo"}
			]}
		],
		"usage": {"input_tokens": 7, "output_tokens": 3, "total_tokens": 10}
	}`
	server := httptest.NewServer(jsonHandler(body))
	defer server.Close()

	c := testClient(t, server.URL+"/openai/responses")
	comp, err := c.Call(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, "hello", comp.Content)
	assert.Equal(t, 7, comp.Tokens.PromptTokens)
	assert.Equal(t, 3, comp.Tokens.CompletionTokens)
	assert.Equal(t, 10, comp.Tokens.TotalTokens)
}

func TestCallStatusClassification(t *testing.T) {
	cases := []struct {
		status int
		kind   ErrorKind
		msg    string
	}{
		{http.StatusUnauthorized, KindAuth, "authentication failed"},
		{http.StatusForbidden, KindPermission, "insufficient permission"},
		{http.StatusTooManyRequests, KindRateLimited, "rate limited"},
		{http.StatusInternalServerError, KindServer, "server error: HTTP 500"},
		{http.StatusServiceUnavailable, KindServer, "server error: HTTP 503"},
		{http.StatusTeapot, KindHTTP, "request failed: HTTP 418"},
	}

	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))

		c := testClient(t, server.URL)
		_, err := c.Call(context.Background(), "x")
		require.Error(t, err)

		var callErr *CallError
		require.ErrorAs(t, err, &callErr)
		assert.Equal(t, tc.kind, callErr.Kind)
		assert.Contains(t, callErr.Message, tc.msg)

		server.Close()
	}
}

func TestCallParseFailure(t *testing.T) {
	server := httptest.NewServer(jsonHandler("this is not json"))
	defer server.Close()

	c := testClient(t, server.URL)
	_, err := c.Call(context.Background(), "x")
	require.Error(t, err)

	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, KindParse, callErr.Kind)
	assert.Contains(t, callErr.Message, "response parse failure")
}

func TestCallTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer server.Close()

	c := NewClient(Config{
		Endpoint: server.URL,
		APIKey:   "k",
		Model:    "m",
		Timeout:  50 * time.Millisecond,
	}, zap.NewNop())

	_, err := c.Call(context.Background(), "x")
	require.Error(t, err)

	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, KindTimeout, callErr.Kind)
	assert.Contains(t, callErr.Message, "request timed out after 50ms")
}

func TestCallConnectionFailure(t *testing.T) {
	server := httptest.NewServer(jsonHandler("{}"))
	endpoint := server.URL
	server.Close()

	c := testClient(t, endpoint)
	_, err := c.Call(context.Background(), "x")
	require.Error(t, err)

	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, KindConnection, callErr.Kind)
	assert.Contains(t, callErr.Message, "connection failed")
}

func TestCallFallbackTokenCount(t *testing.T) {
	// Usage reports zero completion tokens despite non-empty content,
	// so the client counts locally and repairs the total.
	body := `{"choices":[{"message":{"content":"one two three four"}}],"usage":{"prompt_tokens":5,"completion_tokens":0,"total_tokens":5}}`
	server := httptest.NewServer(jsonHandler(body))
	defer server.Close()

	c := testClient(t, server.URL+"/v1/chat/completions")
	comp, err := c.Call(context.Background(), "x")
	require.NoError(t, err)

	assert.Greater(t, comp.Tokens.CompletionTokens, 0)
	assert.Equal(t, 5+comp.Tokens.CompletionTokens, comp.Tokens.TotalTokens)
}

func TestCallNoFallbackForEmptyContent(t *testing.T) {
	body := `{"choices":[{"message":{"content":""}}],"usage":{"prompt_tokens":5,"completion_tokens":0,"total_tokens":5}}`
	server := httptest.NewServer(jsonHandler(body))
	defer server.Close()

	c := testClient(t, server.URL+"/v1/chat/completions")
	comp, err := c.Call(context.Background(), "x")
	require.NoError(t, err)

	assert.Zero(t, comp.Tokens.CompletionTokens)
	assert.Equal(t, 5, comp.Tokens.TotalTokens)
}
