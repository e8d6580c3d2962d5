package stage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"chatscribe/internal/services"
)

func TestRequireTranscript_Valid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chat.txt")
	if err := os.WriteFile(path, []byte("hola"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := RequireTranscript(&Env{TranscriptPath: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != path {
		t.Fatalf("unexpected path: %q", got)
	}
}

func TestRequireTranscript_Unset(t *testing.T) {
	_, err := RequireTranscript(&Env{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRequireTranscript_Missing(t *testing.T) {
	_, err := RequireTranscript(&Env{TranscriptPath: filepath.Join(t.TempDir(), "gone.txt")})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
