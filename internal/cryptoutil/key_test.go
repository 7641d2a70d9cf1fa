package cryptoutil

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"io"
	"testing"
)

func TestParseKeyForms(t *testing.T) {
	raw := bytes.Repeat([]byte{7}, KeySize)
	for _, in := range []string{
		base64.StdEncoding.EncodeToString(raw),
		"base64:" + base64.StdEncoding.EncodeToString(raw),
		"hex:" + hex.EncodeToString(raw),
		hex.EncodeToString(raw),
	} {
		parsed, err := ParseKey(in)
		if err != nil {
			t.Fatalf("ParseKey(%q): %v", in, err)
		}
		if !bytes.Equal(parsed, raw) {
			t.Fatalf("ParseKey(%q) returned wrong bytes", in)
		}
	}
	if _, err := ParseKey("base64:" + base64.StdEncoding.EncodeToString(raw[:16])); err == nil {
		t.Fatalf("expected short key to be rejected")
	}
	if _, err := ParseKey(" "); err == nil {
		t.Fatalf("expected empty key to be rejected")
	}
}

func TestGenerateKey(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseKey(key); err != nil {
		t.Fatalf("generated key does not parse: %v", err)
	}
}

func TestConfigEncryption(t *testing.T) {
	key := bytes.Repeat([]byte{1}, KeySize)
	sealed, err := EncryptConfig([]byte("schedule:\n  open_hour: 11\n"), key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	plain, err := DecryptConfig(sealed, key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(plain) != "schedule:\n  open_hour: 11\n" {
		t.Fatalf("unexpected plaintext: %q", plain)
	}
	if _, err := DecryptConfig(sealed, bytes.Repeat([]byte{2}, KeySize)); err == nil {
		t.Fatalf("expected wrong key to fail")
	}
}

func TestStreamEncryption(t *testing.T) {
	key := bytes.Repeat([]byte{3}, KeySize)
	var sealed bytes.Buffer
	w, err := EncryptWriter(&sealed, key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := w.Write([]byte(`{"users":[]}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	r, err := DecryptReader(&sealed, key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(plain) != `{"users":[]}` {
		t.Fatalf("unexpected plaintext: %q", plain)
	}
}
