package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	// KeyBytes is the size of the derived AES-256 key.
	KeyBytes = 32
	// IVBytes is the size of the derived initialization vector.
	IVBytes = aes.BlockSize

	envelopeVersion = 1

	// Argon2id parameters for key derivation.
	argon2Time    = 3
	argon2Memory  = 64 * 1024
	argon2Threads = 4
)

// ErrDecryption is returned when a payload cannot be opened with the supplied
// password and salt, or is not a well-formed envelope.
var ErrDecryption = errors.New("localstorage: decryption failed - wrong key or corrupted data")

// ErrWiped is returned by a Cipher used after Wipe.
var ErrWiped = errors.New("localstorage: cipher key material wiped")

// DeriveKeyAndIV derives a key and IV from password and salt with Argon2id.
// The same (password, salt) always yields the same pair.
func DeriveKeyAndIV(password, salt string) (key, iv []byte) {
	out := argon2.IDKey([]byte(password), []byte(salt), argon2Time, argon2Memory, argon2Threads, KeyBytes+IVBytes)
	return out[:KeyBytes], out[KeyBytes:]
}

// Encrypt seals plaintext under a key derived from password and salt.
func Encrypt(password, salt, plaintext string) (string, error) {
	c, err := NewCipher(password, salt)
	if err != nil {
		return "", err
	}
	defer c.Wipe()
	return c.Encrypt(plaintext)
}

// Decrypt opens a payload produced by Encrypt with the same password and salt.
func Decrypt(password, salt, ciphertext string) (string, error) {
	c, err := NewCipher(password, salt)
	if err != nil {
		return "", err
	}
	defer c.Wipe()
	return c.Decrypt(ciphertext)
}

// Cipher holds derived key material for repeated use.
type Cipher struct {
	key  []byte
	iv   []byte
	aead cipher.AEAD
}

// NewCipher derives key material once for password and salt.
func NewCipher(password, salt string) (*Cipher, error) {
	key, iv := DeriveKeyAndIV(password, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create block cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return &Cipher{key: key, iv: iv, aead: aead}, nil
}

// Encrypt seals plaintext into a base64 envelope.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if c.aead == nil {
		return "", ErrWiped
	}
	ns := c.aead.NonceSize()
	buf := make([]byte, 1+ns, 1+ns+len(plaintext)+c.aead.Overhead())
	buf[0] = envelopeVersion
	if _, err := io.ReadFull(rand.Reader, buf[1:]); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	sealed := c.aead.Seal(buf, buf[1:], []byte(plaintext), c.iv)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a base64 envelope.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	if c.aead == nil {
		return "", ErrWiped
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrDecryption
	}
	ns := c.aead.NonceSize()
	if len(raw) < 1+ns+c.aead.Overhead() || raw[0] != envelopeVersion {
		return "", ErrDecryption
	}
	pt, err := c.aead.Open(nil, raw[1:1+ns], raw[1+ns:], c.iv)
	if err != nil {
		return "", ErrDecryption
	}
	return string(pt), nil
}

// Wipe zeroes the derived key and IV and drops the AEAD, whose expanded key
// schedule cannot be cleared in place. Encrypt and Decrypt return ErrWiped
// afterwards.
func (c *Cipher) Wipe() {
	clear(c.key)
	clear(c.iv)
	c.aead = nil
}
