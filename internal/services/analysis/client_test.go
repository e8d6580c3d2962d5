package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAnalyzeConversation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Fatalf("unexpected messages: %+v", req.Messages)
		}
		if !strings.Contains(req.Messages[0].Content, "coach experto en ventas") {
			t.Fatal("system prompt missing")
		}
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]any{"content": "✅ Puntos positivos: saludo cordial."},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	review, err := client.AnalyzeConversation(context.Background(), "7:21 a.m. - Hermano: Hola")
	if err != nil {
		t.Fatalf("AnalyzeConversation returned error: %v", err)
	}
	if !strings.Contains(review, "Puntos positivos") {
		t.Fatalf("unexpected review %q", review)
	}
}

func TestAnalyzeConversationRequiresInput(t *testing.T) {
	client := NewClient(Config{APIKey: "test", Model: "demo-model"})
	if _, err := client.AnalyzeConversation(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty transcript")
	}
}

func TestAnalyzeConversationAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"message": "rate limited"}})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if _, err := client.AnalyzeConversation(context.Background(), "hola"); err == nil {
		t.Fatal("expected error for http 429")
	}
}
