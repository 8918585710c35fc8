// Package adaptive provides the AEAD ciphers used for snapshot encryption.
//
// New picks AES-256-GCM on architectures where Go's crypto/aes is hardware
// accelerated and ChaCha20-Poly1305 elsewhere. Ciphertexts carry their
// random nonce as a prefix.
//
//	c, err := adaptive.New(key)
//	sealed, err := c.Encrypt(plaintext, aad)
//	plaintext, err := c.Decrypt(sealed, aad)
package adaptive
