package localstorage

import "github.com/aweris/localstorage/internal/crypto"

// Encrypt seals plaintext with a key derived from password and salt, in the
// same format stored values use. The result is base64 text.
func Encrypt(password, salt, plaintext string) (string, error) {
	return crypto.Encrypt(password, salt, plaintext)
}

// Decrypt opens a payload produced by Encrypt or by an encrypting
// LocalStorage. A wrong password or salt yields ErrDecryption.
func Decrypt(password, salt, ciphertext string) (string, error) {
	return crypto.Decrypt(password, salt, ciphertext)
}
