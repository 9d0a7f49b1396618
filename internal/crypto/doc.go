// Package crypto implements the per-value encryption used by localstorage.
//
// Contents
//
//   - Argon2id derivation of an AES-256 key and a 16-byte IV from a password and
//     salt (DeriveKeyAndIV)
//   - AES-256-GCM sealing of text payloads into base64 envelopes (Encrypt, Decrypt)
//   - A Cipher that derives once and is reused for every value of a store
//
// # Envelope
//
// An encrypted payload is the standard base64 encoding of
//
//	version (1 byte) || nonce (12 bytes) || ciphertext || tag (16 bytes)
//
// The nonce is random per call. The derived IV is bound as associated data, so a
// payload only opens under the same password and salt it was sealed with.
package crypto
