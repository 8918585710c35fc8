package snapshot

import (
	"bytes"
	"errors"
	"testing"
)

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     EncryptionConfig
		wantErr error
	}{
		{"empty config is valid", EncryptionConfig{}, nil},
		{"valid key", EncryptionConfig{Key: make([]byte, 32)}, nil},
		{"key too short", EncryptionConfig{Key: make([]byte, 8)}, ErrKeyTooShort},
		{"valid passphrase", EncryptionConfig{Passphrase: []byte("mypassword123")}, nil},
		{"passphrase too weak", EncryptionConfig{Passphrase: []byte("short")}, ErrPassphraseTooWeak},
		{
			name:    "passphrase overrides key validation",
			cfg:     EncryptionConfig{Key: make([]byte, 8), Passphrase: []byte("mypassword123")},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateConfig(tt.cfg); err != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateConfig_Algorithm(t *testing.T) {
	for _, algo := range []string{"", "aes-gcm", "chacha20-poly1305"} {
		if err := ValidateConfig(EncryptionConfig{Key: make([]byte, 16), Algorithm: algo}); err != nil {
			t.Errorf("ValidateConfig(%q) error = %v", algo, err)
		}
	}
	if err := ValidateConfig(EncryptionConfig{Key: make([]byte, 16), Algorithm: "rot13"}); err == nil {
		t.Error("ValidateConfig(rot13) should fail")
	}
}

func TestDeriveKeyFromPassphrase(t *testing.T) {
	salt := bytes.Repeat([]byte{1}, SaltLength)

	k1 := DeriveKeyFromPassphrase([]byte("passphrase-one"), salt)
	k2 := DeriveKeyFromPassphrase([]byte("passphrase-one"), salt)
	k3 := DeriveKeyFromPassphrase([]byte("passphrase-one"), bytes.Repeat([]byte{2}, SaltLength))

	if len(k1) != argon2KeyLen {
		t.Fatalf("len(key) = %d, want %d", len(k1), argon2KeyLen)
	}
	if !bytes.Equal(k1, k2) {
		t.Error("same passphrase and salt produced different keys")
	}
	if bytes.Equal(k1, k3) {
		t.Error("different salts produced the same key")
	}
}

func TestDeriveSubkey(t *testing.T) {
	master := bytes.Repeat([]byte{7}, 32)

	a, err := DeriveSubkey(master, "purpose-a", 32)
	if err != nil {
		t.Fatalf("DeriveSubkey: %v", err)
	}
	b, err := DeriveSubkey(master, "purpose-b", 32)
	if err != nil {
		t.Fatalf("DeriveSubkey: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Error("different info strings produced the same subkey")
	}

	if _, err := DeriveSubkey(make([]byte, 8), "x", 32); !errors.Is(err, ErrKeyTooShort) {
		t.Errorf("short master key err = %v, want %v", err, ErrKeyTooShort)
	}
}

func TestGenerateKey(t *testing.T) {
	k, err := GenerateKey(32)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if len(k) != 32 {
		t.Errorf("len = %d, want 32", len(k))
	}
	if _, err := GenerateKey(8); !errors.Is(err, ErrKeyTooShort) {
		t.Errorf("GenerateKey(8) err = %v, want %v", err, ErrKeyTooShort)
	}
}

func TestZeroKey(t *testing.T) {
	k := []byte{1, 2, 3}
	ZeroKey(k)
	if !bytes.Equal(k, []byte{0, 0, 0}) {
		t.Errorf("ZeroKey left %v", k)
	}
}

func TestSealer_AlgorithmMismatchReopens(t *testing.T) {
	key := bytes.Repeat([]byte{9}, 32)

	aes, err := newSealer(EncryptionConfig{Key: key, Algorithm: "aes-gcm"})
	if err != nil {
		t.Fatalf("newSealer: %v", err)
	}
	var hdr snapshotHeader
	sealed, err := aes.seal([]byte(`{"k":{"payload":"v","expires_at":-1}}`), &hdr)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	chacha, err := newSealer(EncryptionConfig{Key: key, Algorithm: "chacha20-poly1305"})
	if err != nil {
		t.Fatalf("newSealer: %v", err)
	}
	plain, err := chacha.open(sealed, hdr)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Contains(plain, []byte(`"payload":"v"`)) {
		t.Errorf("plain = %s", plain)
	}
}
