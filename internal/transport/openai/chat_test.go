package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/aptsearch/internal/domain"
)

type chatRequest struct {
	Model          string  `json:"model"`
	Temperature    float32 `json:"temperature"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func chatServer(t *testing.T, content string, got *chatRequest) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got != nil {
			if err := json.NewDecoder(r.Body).Decode(got); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		resp := map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "test",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
			"usage": map[string]any{"prompt_tokens": 50, "completion_tokens": 20, "total_tokens": 70},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestChat_CompleteJSON(t *testing.T) {
	var req chatRequest
	server := chatServer(t, `{"needsMoreInfo":false}`, &req)

	chat := NewChat(&Config{APIKey: "k", BaseURL: server.URL, Model: "gpt-4o", Logger: zap.NewNop()}, 0.1)
	out, err := chat.CompleteJSON(context.Background(), "system prompt", []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "2br in soho"},
		{Role: domain.RoleAssistant, Content: "budget?"},
		{Role: domain.RoleUser, Content: "4000"},
	})
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if out != `{"needsMoreInfo":false}` {
		t.Errorf("content = %q", out)
	}

	if req.Model != "gpt-4o" || req.Temperature != 0.1 {
		t.Errorf("unexpected request params: %+v", req)
	}
	if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_object" {
		t.Errorf("expected json_object response format, got %+v", req.ResponseFormat)
	}
	if len(req.Messages) != 4 || req.Messages[0].Role != "system" || req.Messages[0].Content != "system prompt" {
		t.Fatalf("unexpected messages: %+v", req.Messages)
	}
	if req.Messages[2].Role != "assistant" || req.Messages[3].Content != "4000" {
		t.Errorf("history not preserved: %+v", req.Messages)
	}
}

func TestChat_BaseGPT4SkipsJSONMode(t *testing.T) {
	var req chatRequest
	server := chatServer(t, `{}`, &req)

	chat := NewChat(&Config{APIKey: "k", BaseURL: server.URL, Model: "gpt-4", Logger: zap.NewNop()}, 0.1)
	if _, err := chat.CompleteJSON(context.Background(), "s", nil); err != nil {
		t.Fatal(err)
	}
	if req.ResponseFormat != nil {
		t.Errorf("gpt-4 must not receive response_format, got %+v", req.ResponseFormat)
	}
}

func TestChat_EmptyContent(t *testing.T) {
	server := chatServer(t, "  ", nil)

	chat := NewChat(&Config{APIKey: "k", BaseURL: server.URL, Model: "gpt-4o", Logger: zap.NewNop()}, 0.1)
	_, err := chat.CompleteJSON(context.Background(), "s", nil)
	if !errors.Is(err, domain.ErrCollaborator) {
		t.Fatalf("expected ErrCollaborator, got %v", err)
	}
}

func TestChat_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer server.Close()

	chat := NewChat(&Config{APIKey: "k", BaseURL: server.URL, Model: "gpt-4o", Logger: zap.NewNop()}, 0.1)
	_, err := chat.CompleteJSON(context.Background(), "s", nil)
	if !errors.Is(err, domain.ErrCollaborator) {
		t.Fatalf("expected ErrCollaborator, got %v", err)
	}
}
