package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
)

func TestOpenAIProvider_Generate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("expected Authorization Bearer test-key, got %s", r.Header.Get("Authorization"))
		}

		resp := openai.ChatCompletionResponse{
			ID:    "chatcmpl-123",
			Model: "gpt-4o",
			Choices: []openai.ChatCompletionChoice{
				{
					Message: openai.ChatCompletionMessage{
						Role:    "assistant",
						Content: "  # Notes\n- The Commission approved the sewer contract.  ",
					},
					FinishReason: "stop",
				},
			},
			Usage: openai.Usage{TotalTokens: 321},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "gpt-4o",
		Timeout: 5,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	resp, err := provider.Generate(context.Background(), GenerateRequest{
		System: "You are a researcher.",
		Prompt: "Summarize the meeting.",
	})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if resp.Text != "# Notes\n- The Commission approved the sewer contract." {
		t.Errorf("unexpected text: %q", resp.Text)
	}
	if resp.TokensUsed != 321 {
		t.Errorf("expected 321 tokens, got %d", resp.TokensUsed)
	}
}

func TestOpenAIProvider_Generate_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{ID: "chatcmpl-456"})
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	if _, err := provider.Generate(context.Background(), GenerateRequest{Prompt: "hi"}); err == nil {
		t.Fatal("expected error for empty choices")
	}
}
