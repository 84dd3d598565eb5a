package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func TestSealer_RoundTrip(t *testing.T) {
	s, err := NewSealer("correct horse battery staple")
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	box, err := s.SealString("sk-live-123456")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if bytes.Contains(box, []byte("sk-live")) {
		t.Fatalf("plaintext visible in box")
	}
	got, err := s.OpenString(box)
	if err != nil || got != "sk-live-123456" {
		t.Fatalf("Open = %q, %v", got, err)
	}

	// Nonces are random: sealing twice yields different boxes.
	box2, _ := s.SealString("sk-live-123456")
	if bytes.Equal(box, box2) {
		t.Fatalf("expected distinct ciphertexts")
	}
}

func TestSealer_RejectsTamperingAndForeignKeys(t *testing.T) {
	s, _ := NewSealer("key-a")
	other, _ := NewSealer("key-b")
	box, _ := s.Seal([]byte("token"))

	if _, err := other.Open(box); !errors.Is(err, ErrOpen) {
		t.Fatalf("foreign key should fail: %v", err)
	}
	box[len(box)-1] ^= 0xff
	if _, err := s.Open(box); !errors.Is(err, ErrOpen) {
		t.Fatalf("tampered box should fail: %v", err)
	}
	if _, err := s.Open([]byte("short")); !errors.Is(err, ErrOpen) {
		t.Fatalf("short box should fail: %v", err)
	}
}

func TestNewSealer_EmptyAndLast4(t *testing.T) {
	if _, err := NewSealer("   "); !errors.Is(err, ErrNoKey) {
		t.Fatalf("expected ErrNoKey, got %v", err)
	}
	cases := map[string]string{"": "", "abc": "abc", "sk-1234abcd": "abcd", " xyz9 ": "xyz9"}
	for in, want := range cases {
		if got := Last4(in); got != want {
			t.Fatalf("Last4(%q) = %q; want %q", in, got, want)
		}
	}
}
