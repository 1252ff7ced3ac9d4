package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"miosub/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "translate", "request", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"translate", "request", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "transcribe", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestIsInputError(t *testing.T) {
	if !services.IsInputError(services.Wrap(services.ErrValidation, "prepare", "", "missing source", nil)) {
		t.Fatal("validation errors should be input errors")
	}
	if services.IsInputError(services.Wrap(services.ErrExternalTool, "align", "", "http 500", nil)) {
		t.Fatal("external tool errors are not input errors")
	}
}

func TestIsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if !services.IsCancellation(ctx.Err()) {
		t.Fatal("expected cancellation")
	}
	if services.IsCancellation(errors.New("boom")) {
		t.Fatal("plain errors are not cancellation")
	}
}
