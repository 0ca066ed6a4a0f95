package secrets

import (
	"context"
	"testing"
)

func TestEnvProviderGetSecret(t *testing.T) {
	t.Setenv("APP_HMAC_KEY", "super-secret")
	p := NewEnvProvider("APP_")

	got, err := p.GetSecret(context.Background(), "HMAC_KEY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "super-secret" {
		t.Fatalf("got %q, want %q", got, "super-secret")
	}
}

func TestEnvProviderMissing(t *testing.T) {
	p := NewEnvProvider("APP_")
	_, err := p.GetSecret(context.Background(), "DOES_NOT_EXIST")
	if err == nil {
		t.Fatalf("expected an error for a missing secret")
	}
	if _, ok := err.(*ErrNotFound); !ok {
		t.Fatalf("expected *ErrNotFound, got %T", err)
	}
}

func TestMustLoadHMACSecret(t *testing.T) {
	t.Setenv("TICKETGATE_HMAC_SECRET", "mayur@123")
	got, err := MustLoadHMACSecret("TICKETGATE_HMAC_SECRET")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "mayur@123" {
		t.Fatalf("got %q", got)
	}
}
