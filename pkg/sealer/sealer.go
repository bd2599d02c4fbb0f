package sealer

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DevelopmentKey is only meant for local runs; deployments set RESERVATION_TOKEN_KEY.
const DevelopmentKey = "lfQVRuulcL2iOhOJ2r8BYTweoSKwVAJnIF9U+AL+M60="

var ErrInvalidToken = errors.New("invalid token")

// Sealer produces opaque, tamper-evident tokens binding two identifiers.
type Sealer struct {
	aead cipher.AEAD
}

// New builds a Sealer from a base64 encoded AES key (16, 24 or 32 bytes).
func New(base64Key string) (*Sealer, error) {
	key, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, fmt.Errorf("failed to decode key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcm: %w", err)
	}

	return &Sealer{aead: aesgcm}, nil
}

func (s *Sealer) Seal(first, second string) (string, error) {
	if strings.Contains(first, ":") {
		return "", fmt.Errorf("first part must not contain ':'")
	}
	plaintext := []byte(first + ":" + second)

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ct := s.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(ct), nil
}

func (s *Sealer) Open(token string) (string, string, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", "", ErrInvalidToken
	}

	nonceSize := s.aead.NonceSize()
	if len(data) <= nonceSize {
		return "", "", ErrInvalidToken
	}
	nonce := data[:nonceSize]
	ciphertext := data[nonceSize:]

	pt, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", "", ErrInvalidToken
	}

	parts := strings.SplitN(string(pt), ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", ErrInvalidToken
	}

	return parts[0], parts[1], nil
}
