package backup

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

const (
	scryptN   = 16384
	scryptR   = 8
	scryptP   = 1
	keyLength = 32
)

// ErrShortArtifact is returned when an artifact is too short to hold its IV
var ErrShortArtifact = errors.New("backup artifact is truncated")

// DeriveKey stretches the configured passphrase into an AES-256 key
func DeriveKey(passphrase, salt string) ([]byte, error) {
	if passphrase == "" || salt == "" {
		return nil, errors.New("backup passphrase and salt are required")
	}
	key, err := scrypt.Key([]byte(passphrase), []byte(salt), scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return nil, fmt.Errorf("derive backup key: %w", err)
	}
	return key, nil
}

// Encrypt writes a random IV followed by the AES-CTR stream of src
func Encrypt(dst io.Writer, src io.Reader, key []byte, random io.Reader) error {
	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("init cipher: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(random, iv); err != nil {
		return fmt.Errorf("generate iv: %w", err)
	}
	if _, err := dst.Write(iv); err != nil {
		return fmt.Errorf("write iv: %w", err)
	}

	writer := &cipher.StreamWriter{S: cipher.NewCTR(block, iv), W: dst}
	if _, err := io.Copy(writer, src); err != nil {
		return fmt.Errorf("encrypt: %w", err)
	}
	return nil
}

// Decrypt reverses Encrypt
func Decrypt(dst io.Writer, src io.Reader, key []byte) error {
	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("init cipher: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(src, iv); err != nil {
		return ErrShortArtifact
	}

	reader := &cipher.StreamReader{S: cipher.NewCTR(block, iv), R: src}
	if _, err := io.Copy(dst, reader); err != nil {
		return fmt.Errorf("decrypt: %w", err)
	}
	return nil
}
