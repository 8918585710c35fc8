package snapshot

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"

	"github.com/yndnr/minikv/pkg/crypto/adaptive"
)

// Encryption errors.
var (
	ErrKeyTooShort       = errors.New("snapshot: encryption key too short (minimum 16 bytes)")
	ErrPassphraseTooWeak = errors.New("snapshot: passphrase too weak (minimum 8 characters)")
	ErrDecryptionFailed  = errors.New("snapshot: decryption failed - wrong key or corrupted data")
)

const (
	// MinKeyLength is the minimum key length for encryption.
	MinKeyLength = 16

	// MinPassphraseLength is the minimum passphrase length.
	MinPassphraseLength = 8

	// SaltLength is the salt length used in passphrase derivation.
	SaltLength = 16

	// Argon2 parameters for key derivation from passphrase.
	argon2Time    = 3
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32

	kdfHKDF   = "hkdf-sha256"
	kdfArgon2 = "argon2id"

	// subkeyInfo binds HKDF output to snapshot encryption.
	subkeyInfo = "minikv snapshot v1"
)

// EncryptionConfig configures snapshot encryption.
// Leaving both Key and Passphrase empty disables encryption.
type EncryptionConfig struct {
	// Key is the raw master key. A 32-byte subkey is derived from it with HKDF.
	Key []byte

	// Passphrase is stretched with Argon2id. If set, Key is ignored.
	Passphrase []byte

	// Algorithm is "aes-gcm" or "chacha20-poly1305". Empty picks one for the platform.
	Algorithm string
}

// Enabled reports whether any key material is configured.
func (c EncryptionConfig) Enabled() bool {
	return len(c.Key) > 0 || len(c.Passphrase) > 0
}

// ValidateConfig validates the encryption configuration.
func ValidateConfig(cfg EncryptionConfig) error {
	if len(cfg.Passphrase) > 0 {
		if len(cfg.Passphrase) < MinPassphraseLength {
			return ErrPassphraseTooWeak
		}
	} else if len(cfg.Key) > 0 && len(cfg.Key) < MinKeyLength {
		return ErrKeyTooShort
	}

	switch adaptive.CipherType(cfg.Algorithm) {
	case "", adaptive.CipherAESGCM, adaptive.CipherChaCha20:
		return nil
	default:
		return fmt.Errorf("snapshot: unsupported algorithm: %s", cfg.Algorithm)
	}
}

// sealer encrypts and decrypts snapshot data blocks.
type sealer struct {
	cfg EncryptionConfig

	// cipher is fixed for key-based encryption; passphrase mode builds one per salt.
	cipher adaptive.Cipher
}

func newSealer(cfg EncryptionConfig) (*sealer, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	s := &sealer{cfg: cfg}
	if len(cfg.Passphrase) == 0 {
		key, err := DeriveSubkey(cfg.Key, subkeyInfo, argon2KeyLen)
		if err != nil {
			return nil, err
		}
		defer ZeroKey(key)
		if s.cipher, err = newCipher(key, cfg.Algorithm); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *sealer) seal(plain []byte, hdr *snapshotHeader) ([]byte, error) {
	c := s.cipher
	hdr.KDF = kdfHKDF
	if c == nil {
		salt := make([]byte, SaltLength)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("snapshot: generate salt: %w", err)
		}
		var err error
		if c, err = s.passphraseCipher(salt); err != nil {
			return nil, err
		}
		hdr.KDF = kdfArgon2
		hdr.Salt = hex.EncodeToString(salt)
	}

	hdr.Encrypted = true
	hdr.Algorithm = string(c.Type())

	out, err := c.Encrypt(plain, magicBytes)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encrypt: %w", err)
	}
	return out, nil
}

func (s *sealer) open(data []byte, hdr snapshotHeader) ([]byte, error) {
	c := s.cipher
	switch hdr.KDF {
	case kdfArgon2:
		if len(s.cfg.Passphrase) == 0 {
			return nil, fmt.Errorf("snapshot: passphrase required")
		}
		salt, err := hex.DecodeString(hdr.Salt)
		if err != nil || len(salt) != SaltLength {
			return nil, fmt.Errorf("snapshot: invalid salt in header")
		}
		if c, err = s.passphraseCipher(salt); err != nil {
			return nil, err
		}
	case kdfHKDF:
		if c == nil {
			return nil, fmt.Errorf("snapshot: encryption key required")
		}
	default:
		return nil, fmt.Errorf("snapshot: unknown kdf %q", hdr.KDF)
	}

	if hdr.Algorithm != "" && adaptive.CipherType(hdr.Algorithm) != c.Type() {
		key, err := s.rebuildKey(hdr)
		if err != nil {
			return nil, err
		}
		defer ZeroKey(key)
		if c, err = newCipher(key, hdr.Algorithm); err != nil {
			return nil, err
		}
	}

	plain, err := c.Decrypt(data, magicBytes)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plain, nil
}

// rebuildKey derives the key again when a snapshot was sealed with a
// different algorithm than the one currently configured.
func (s *sealer) rebuildKey(hdr snapshotHeader) ([]byte, error) {
	if hdr.KDF == kdfArgon2 {
		salt, _ := hex.DecodeString(hdr.Salt)
		return DeriveKeyFromPassphrase(s.cfg.Passphrase, salt), nil
	}
	return DeriveSubkey(s.cfg.Key, subkeyInfo, argon2KeyLen)
}

func (s *sealer) passphraseCipher(salt []byte) (adaptive.Cipher, error) {
	key := DeriveKeyFromPassphrase(s.cfg.Passphrase, salt)
	defer ZeroKey(key)
	return newCipher(key, s.cfg.Algorithm)
}

func newCipher(key []byte, algorithm string) (adaptive.Cipher, error) {
	if algorithm == "" {
		return adaptive.New(key)
	}
	return adaptive.NewWithType(key, adaptive.CipherType(algorithm))
}

// DeriveKeyFromPassphrase derives a 32-byte key from a passphrase and salt using Argon2id.
func DeriveKeyFromPassphrase(passphrase, salt []byte) []byte {
	return argon2.IDKey(
		passphrase,
		salt,
		argon2Time,
		argon2Memory,
		argon2Threads,
		argon2KeyLen,
	)
}

// DeriveSubkey derives a subkey from a master key using HKDF.
func DeriveSubkey(masterKey []byte, info string, length int) ([]byte, error) {
	if len(masterKey) < MinKeyLength {
		return nil, ErrKeyTooShort
	}

	reader := hkdf.New(sha256.New, masterKey, nil, []byte(info))
	key := make([]byte, length)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("snapshot: derive subkey: %w", err)
	}
	return key, nil
}

// GenerateKey generates a random encryption key of the specified length.
func GenerateKey(length int) ([]byte, error) {
	if length < MinKeyLength {
		return nil, ErrKeyTooShort
	}

	key := make([]byte, length)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("snapshot: generate key: %w", err)
	}
	return key, nil
}

// ZeroKey zeros a key in memory.
func ZeroKey(key []byte) {
	for i := range key {
		key[i] = 0
	}
}
