package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"chatscribe/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("connection refused")
	err := services.Wrap(services.ErrExternalTool, "enrich", "transcribe", "PTT-20250613-WA0020.opus", base)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatal("expected wrapped base error to be preserved")
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "unpack", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestDetailsStripsMarkerPrefix(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "unpack", "layout", "no chat transcript found", nil)
	details := services.Details(err)
	if !errors.Is(details.Marker, services.ErrValidation) {
		t.Fatalf("unexpected marker: %v", details.Marker)
	}
	if details.Message != "unpack: layout: no chat transcript found" {
		t.Fatalf("unexpected message: %q", details.Message)
	}
}

func TestClassifyTimeout(t *testing.T) {
	wrapped := fmt.Errorf("transcribe: %w", context.DeadlineExceeded)
	err := services.ClassifyTimeout(wrapped)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout marker, got %v", err)
	}
	if services.ClassifyTimeout(nil) != nil {
		t.Fatal("nil error should stay nil")
	}
}
