package whisper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeAudioFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "PTT-20240101-WA0001.opus")
	if err := os.WriteFile(path, []byte("not real opus"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestClientTranscribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Fatalf("unexpected auth header %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.FormValue("model"); got != "demo-model" {
			t.Fatalf("unexpected model %q", got)
		}
		if got := r.FormValue("language"); got != "es" {
			t.Fatalf("unexpected language %q", got)
		}
		if _, header, err := r.FormFile("file"); err != nil || header.Filename != "PTT-20240101-WA0001.opus" {
			t.Fatalf("unexpected file part: %v %v", header, err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"text": " hola, llegamos bien "})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model", Language: "es"})
	text, err := client.Transcribe(context.Background(), writeAudioFixture(t))
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if text != "hola, llegamos bien" {
		t.Fatalf("unexpected transcription %q", text)
	}
}

func TestClientTranscribeRetriesServerErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "segundo intento"})
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithRetry(2, time.Millisecond),
		WithSleeper(func(time.Duration) {}),
	)
	text, err := client.Transcribe(context.Background(), writeAudioFixture(t))
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if text != "segundo intento" {
		t.Fatalf("unexpected transcription %q", text)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestClientTranscribeDoesNotRetryClientErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"message": "bad audio"}})
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithRetry(3, time.Millisecond),
		WithSleeper(func(time.Duration) {}),
	)
	if _, err := client.Transcribe(context.Background(), writeAudioFixture(t)); err == nil {
		t.Fatal("expected error for http 400")
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestClientTranscribeRequiresAPIKey(t *testing.T) {
	client := NewClient(Config{Model: "demo-model"})
	if _, err := client.Transcribe(context.Background(), writeAudioFixture(t)); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestClientHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail")
	}
}
