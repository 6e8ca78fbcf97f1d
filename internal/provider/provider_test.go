package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGemini_RequestShape(t *testing.T) {
	var gotPath, gotKey string
	var body map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Xin chào"}]}}]}`))
	}))
	defer server.Close()

	a := NewAdapter(nil, WithProviders(NewGemini(server.URL)))
	text, err := a.Call(context.Background(), Gemini, "gemini-2.0-pro-exp-02-05", "k&y", "hello")

	require.NoError(t, err)
	assert.Equal(t, "Xin chào", text)
	assert.Equal(t, "/models/gemini-2.0-pro-exp-02-05:generateContent", gotPath)
	assert.Equal(t, "k&y", gotKey)

	contents := body["contents"].([]interface{})
	first := contents[0].(map[string]interface{})
	assert.Equal(t, "user", first["role"])
	parts := first["parts"].([]interface{})
	assert.Equal(t, "hello", parts[0].(map[string]interface{})["text"])

	cfg := body["generationConfig"].(map[string]interface{})
	assert.Equal(t, 0.7, cfg["temperature"])
	assert.Equal(t, 64.0, cfg["topK"])
	assert.Equal(t, 0.95, cfg["topP"])
	assert.Equal(t, 65536.0, cfg["maxOutputTokens"])
	assert.Equal(t, "text/plain", cfg["responseMimeType"])
}

func TestChatProviders_RequestShape(t *testing.T) {
	tests := []struct {
		name    string
		build   func(url string) Provider
		referer string
	}{
		{"openai", func(u string) Provider { return NewOpenAI(u) }, ""},
		{"xai", func(u string) Provider { return NewXAI(u) }, ""},
		{"openrouter", func(u string) Provider { return NewOpenRouter(u, "https://app.example") }, "https://app.example"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]interface{}
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/chat/completions", r.URL.Path)
				assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				assert.Equal(t, tt.referer, r.Header.Get("HTTP-Referer"))
				data, _ := io.ReadAll(r.Body)
				_ = json.Unmarshal(data, &body)
				w.Write([]byte(`{"choices":[{"message":{"content":"Chào"}}]}`))
			}))
			defer server.Close()

			p := tt.build(server.URL)
			a := NewAdapter(nil, WithProviders(p))
			text, err := a.Call(context.Background(), p.ID(), "m-1", "secret", "prompt")

			require.NoError(t, err)
			assert.Equal(t, "Chào", text)
			assert.Equal(t, "m-1", body["model"])
			assert.Equal(t, 0.7, body["temperature"])
			assert.Equal(t, 4000.0, body["max_tokens"])
			msgs := body["messages"].([]interface{})
			require.Len(t, msgs, 1)
			msg := msgs[0].(map[string]interface{})
			assert.Equal(t, "user", msg["role"])
			assert.Equal(t, "prompt", msg["content"])
		})
	}
}

func TestCall_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"quota"}`))
	}))
	defer server.Close()

	a := NewAdapter(nil, WithProviders(NewOpenAI(server.URL)))
	_, err := a.Call(context.Background(), OpenAI, "gpt-4-turbo", "k", "p")

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusTooManyRequests, pe.Status)
	assert.Equal(t, `{"error":"quota"}`, pe.Body)
	assert.Contains(t, err.Error(), "429")
}

func TestCall_ResponseShapeError(t *testing.T) {
	tests := []struct {
		name     string
		provider func(string) Provider
		body     string
	}{
		{"gemini no candidates", func(u string) Provider { return NewGemini(u) }, `{"candidates":[]}`},
		{"gemini no parts", func(u string) Provider { return NewGemini(u) }, `{"candidates":[{"content":{}}]}`},
		{"chat no choices", func(u string) Provider { return NewXAI(u) }, `{"choices":[]}`},
		{"chat not json", func(u string) Provider { return NewXAI(u) }, `<html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			p := tt.provider(server.URL)
			a := NewAdapter(nil, WithProviders(p))
			_, err := a.Call(context.Background(), p.ID(), "m", "k", "p")

			var se *ResponseShapeError
			assert.True(t, errors.As(err, &se), "got %v", err)
		})
	}
}

func TestCall_UnsupportedProvider(t *testing.T) {
	a := NewAdapter(nil)

	_, err := a.Call(context.Background(), "bard", "m", "k", "p")

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "bard: unsupported provider", err.Error())
}

func TestCallModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"<think>hmm</think>Đây là bản dịch:\nChào"}}]}`))
	}))
	defer server.Close()

	a := NewAdapter(nil, WithProviders(NewXAI(server.URL)))

	text, err := a.CallModel(context.Background(), "grok-2-latest", "k", "p")
	require.NoError(t, err)
	assert.Equal(t, "Chào", text)

	_, err = a.CallModel(context.Background(), "no-such-model", "k", "p")
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "abcd…wxyz", MaskKey("abcdefghijklmnopqrstuvwxyz"))
	assert.Equal(t, "***", MaskKey("abc"))
}
