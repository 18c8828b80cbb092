package main

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/chacha20poly1305"
)

// ciphertextMagic prefixes every encrypted extract
var ciphertextMagic = []byte("DEID1")

// GenerateKeyFile writes a new random XChaCha20-Poly1305 key to path,
// base64url encoded, readable only by the owner
func GenerateKeyFile(path string) error {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}
	encoded := make([]byte, base64.URLEncoding.EncodedLen(len(key)))
	base64.URLEncoding.Encode(encoded, key)
	return writeFileAtomic(path, append(encoded, '\n'), 0o600)
}

// ReadKeyFile reads and decodes a key written by GenerateKeyFile
func ReadKeyFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read key file: %w", err)
	}
	key, err := base64.URLEncoding.DecodeString(string(bytes.TrimSpace(b)))
	if err != nil {
		return nil, fmt.Errorf("key file %s is not base64url: %w", path, err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("key file %s holds %d bytes, want %d", path, len(key), chacha20poly1305.KeySize)
	}
	return key, nil
}

// Encrypt seals plaintext as magic || nonce || ciphertext
func Encrypt(plaintext, key []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	header := len(ciphertextMagic) + aead.NonceSize()
	out := make([]byte, header, header+len(plaintext)+aead.Overhead())
	copy(out, ciphertextMagic)
	nonce := out[len(ciphertextMagic):]
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return aead.Seal(out, nonce, plaintext, ciphertextMagic), nil
}

// Decrypt opens a message sealed by Encrypt. A wrong key, a tampered
// message or a message that was never encrypted all fail with
// ErrDecryption.
func Decrypt(ciphertext, key []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	if !bytes.HasPrefix(ciphertext, ciphertextMagic) {
		return nil, fmt.Errorf("%w: not an encrypted extract", ErrDecryption)
	}
	body := ciphertext[len(ciphertextMagic):]
	if len(body) < aead.NonceSize()+aead.Overhead() {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecryption)
	}
	nonce, sealed := body[:aead.NonceSize()], body[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, ciphertextMagic)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return plaintext, nil
}

// Gatekeeper encrypts and decrypts extracts at rest. The key file is
// the single source of truth for key material and is re-read for every
// operation.
type Gatekeeper struct {
	KeyPath string
}

// WriteEncrypted encrypts plaintext and writes it to path, so the
// plaintext never reaches the disk
func (g Gatekeeper) WriteEncrypted(path string, plaintext []byte) error {
	key, err := ReadKeyFile(g.KeyPath)
	if err != nil {
		return err
	}
	ciphertext, err := Encrypt(plaintext, key)
	if err != nil {
		return fmt.Errorf("could not encrypt %s: %w", path, err)
	}
	return writeFileAtomic(path, ciphertext, 0o600)
}

// Open returns the decrypted contents of the file at path without
// modifying it
func (g Gatekeeper) Open(path string) ([]byte, error) {
	key, err := ReadKeyFile(g.KeyPath)
	if err != nil {
		return nil, err
	}
	ciphertext, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}
	plaintext, err := Decrypt(ciphertext, key)
	if err != nil {
		return nil, &DecryptionError{Path: path, Err: err}
	}
	return plaintext, nil
}

// DecryptFile decrypts the file at path into outPath, which may be path
// itself. On failure outPath is left untouched.
func (g Gatekeeper) DecryptFile(path, outPath string) error {
	plaintext, err := g.Open(path)
	if err != nil {
		return err
	}
	return writeFileAtomic(outPath, plaintext, 0o600)
}

// writeFileAtomic writes data to a temporary file beside path and
// renames it into place, so path is either fully replaced or untouched
func writeFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("could not create temporary file for %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if err = errors.Join(writeErr, closeErr); err != nil {
		return fmt.Errorf("could not write %s: %w", path, err)
	}
	if err = os.Chmod(tmp.Name(), perm); err != nil {
		return err
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("could not replace %s: %w", path, err)
	}
	return nil
}
