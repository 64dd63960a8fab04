package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"social-scheduler/domain/model"

	"golang.org/x/crypto/hkdf"
)

const (
	// MinKeyLength is the shortest master key accepted, in bytes.
	MinKeyLength = 32

	ivSize  = 12
	keySize = 32
	info    = "social-scheduler/token/v1"
)

// Codec encrypts secrets at rest. Envelopes look like <ivHex>:<cipherHex>; each one
// is sealed with AES-256-GCM under a key derived from the master key and its own IV.
type Codec struct {
	master []byte
	random io.Reader
}

func NewCodec(key string) (*Codec, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: encryption key is missing", model.ErrConfiguration)
	}
	if len(key) < MinKeyLength {
		return nil, fmt.Errorf("%w: encryption key must be at least %d bytes", model.ErrConfiguration, MinKeyLength)
	}
	return &Codec{master: []byte(key), random: rand.Reader}, nil
}

func (c *Codec) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(c.random, iv); err != nil {
		return "", fmt.Errorf("read iv: %w", err)
	}
	aead, err := c.aead(iv)
	if err != nil {
		return "", err
	}
	sealed := aead.Seal(nil, iv, []byte(plaintext), nil)
	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(sealed), nil
}

func (c *Codec) Decrypt(envelope string) (string, error) {
	ivHex, cipherHex, ok := strings.Cut(envelope, ":")
	if !ok {
		return "", fmt.Errorf("%w: malformed envelope", model.ErrDecryption)
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != ivSize {
		return "", fmt.Errorf("%w: malformed iv", model.ErrDecryption)
	}
	sealed, err := hex.DecodeString(cipherHex)
	if err != nil {
		return "", fmt.Errorf("%w: malformed ciphertext", model.ErrDecryption)
	}
	aead, err := c.aead(iv)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrDecryption, err)
	}
	plain, err := aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", model.ErrDecryption)
	}
	return string(plain), nil
}

// Hash returns the hex SHA-256 digest of input.
func (c *Codec) Hash(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// GenerateID returns 128 random bits, hex encoded.
func (c *Codec) GenerateID() string {
	b := make([]byte, 16)
	if _, err := io.ReadFull(c.random, b); err != nil {
		panic(fmt.Sprintf("secret: random source failed: %v", err))
	}
	return hex.EncodeToString(b)
}

func (c *Codec) aead(iv []byte) (cipher.AEAD, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, c.master, iv, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
