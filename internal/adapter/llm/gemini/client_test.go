package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmhttp "github.com/lutradev/lutra/internal/adapter/llm/http"
	"github.com/lutradev/lutra/internal/adapter/llm/gemini"
)

func fastClient(t *testing.T, serverURL string) *gemini.HTTPClient {
	t.Helper()
	client := gemini.NewHTTPClient("test-key", "gemini-2.0-flash")
	client.SetBaseURL(serverURL)
	client.SetRetryConfig(llmhttp.RetryConfig{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	})
	return client
}

func candidateJSON(text, finishReason string) string {
	resp := gemini.GenerateContentResponse{
		Candidates: []gemini.Candidate{
			{
				Content:      gemini.Content{Parts: []gemini.Part{{Text: text}}, Role: "model"},
				FinishReason: finishReason,
			},
		},
		UsageMetadata: gemini.UsageMetadata{PromptTokenCount: 80, CandidatesTokenCount: 20},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func TestCall_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-2.0-flash:generateContent")
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var req gemini.GenerateContentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "review this", req.Contents[0].Parts[0].Text)
		require.NotNil(t, req.SystemInstruction)

		w.Write([]byte(candidateJSON(`{"comments": []}`, "STOP")))
	}))
	defer server.Close()

	client := fastClient(t, server.URL)
	resp, err := client.Call(context.Background(), "review this", gemini.CallOptions{System: "be brief"})
	require.NoError(t, err)

	assert.Equal(t, `{"comments": []}`, resp.Text)
	assert.Equal(t, 80, resp.TokensIn)
	assert.Equal(t, 20, resp.TokensOut)
}

func TestCall_MultiPartTextJoined(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := gemini.GenerateContentResponse{
			Candidates: []gemini.Candidate{
				{
					Content: gemini.Content{Parts: []gemini.Part{
						{Text: `{"comments"`}, {Text: `: []}`},
					}},
					FinishReason: "STOP",
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := fastClient(t, server.URL)
	resp, err := client.Call(context.Background(), "p", gemini.CallOptions{})
	require.NoError(t, err)
	assert.Equal(t, `{"comments": []}`, resp.Text)
}

func TestCall_SafetyBlockedNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(candidateJSON("", "SAFETY")))
	}))
	defer server.Close()

	client := fastClient(t, server.URL)
	_, err := client.Call(context.Background(), "p", gemini.CallOptions{})
	require.Error(t, err)

	var apiErr *llmhttp.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, llmhttp.ErrTypeContentFiltered, apiErr.Type)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCall_RetriesOn500(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error": {"code": 500, "message": "internal", "status": "INTERNAL"}}`))
			return
		}
		w.Write([]byte(candidateJSON("ok", "STOP")))
	}))
	defer server.Close()

	client := fastClient(t, server.URL)
	resp, err := client.Call(context.Background(), "p", gemini.CallOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCall_ErrorMessageFromEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"code": 400, "message": "API key not valid", "status": "INVALID_ARGUMENT"}}`))
	}))
	defer server.Close()

	client := fastClient(t, server.URL)
	_, err := client.Call(context.Background(), "p", gemini.CallOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key not valid")
	// The key query parameter must never leak into errors.
	assert.False(t, strings.Contains(err.Error(), "key=test-key"))
}

func TestCall_NoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates": []}`))
	}))
	defer server.Close()

	client := fastClient(t, server.URL)
	_, err := client.Call(context.Background(), "p", gemini.CallOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candidates")
}
