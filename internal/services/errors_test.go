package services_test

import (
	"errors"
	"strings"
	"testing"

	"reelsync/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "transfer", "put segment", "failed", base)
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
	for _, fragment := range []string{"transfer", "put segment", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "probe", "list", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestClassificationHelpers(t *testing.T) {
	input := services.Wrap(services.ErrValidation, "transcode", "prepare", "unsupported source", nil)
	if !services.IsFatalInput(input) {
		t.Fatal("validation errors are fatal input errors")
	}

	expiry := services.Wrap(services.ErrCredentialExpired, "transfer", "put", "token expired", nil)
	if !services.IsCredentialExpiry(expiry) {
		t.Fatal("expected credential expiry classification")
	}
	if services.IsFatalInput(expiry) {
		t.Fatal("credential expiry is not a fatal input error")
	}

	transient := services.Wrap(services.ErrTransient, "transfer", "put", "timeout", errors.New("io"))
	if services.IsFatalInput(transient) || services.IsCredentialExpiry(transient) {
		t.Fatalf("unexpected classification for %v", transient)
	}
}
