package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"

	"github.com/mrlokans/mycv/internal/config"
)

// CredentialSeparator splits the salt from the digest in a stored credential.
// Neither hex field can contain it.
const CredentialSeparator = "."

const minSaltSize = 8

// Hasher derives and verifies scrypt credentials of the form
// "<salt_hex>.<digest_hex>". The salt hex string itself is the scrypt salt,
// which keeps stored credentials compatible with Node's crypto.scrypt.
type Hasher struct {
	N        int
	R        int
	P        int
	KeyLen   int
	SaltSize int
}

// NewHasher builds a Hasher from config, filling in defaults for unset fields.
func NewHasher(cfg config.Auth) *Hasher {
	h := &Hasher{
		N:        cfg.ScryptN,
		R:        cfg.ScryptR,
		P:        cfg.ScryptP,
		KeyLen:   cfg.ScryptKeyLen,
		SaltSize: cfg.SaltSize,
	}
	if h.N <= 1 {
		h.N = config.DefaultScryptN
	}
	if h.R <= 0 {
		h.R = config.DefaultScryptR
	}
	if h.P <= 0 {
		h.P = config.DefaultScryptP
	}
	if h.KeyLen <= 0 {
		h.KeyLen = config.DefaultScryptKeyLen
	}
	if h.SaltSize < minSaltSize {
		h.SaltSize = minSaltSize
	}
	return h
}

// GenerateSalt returns SaltSize random bytes, hex encoded.
func (h *Hasher) GenerateSalt() (string, error) {
	b := make([]byte, h.SaltSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Hash derives the hex digest of password with salt.
func (h *Hasher) Hash(password, salt string) (string, error) {
	key, err := scrypt.Key([]byte(password), []byte(salt), h.N, h.R, h.P, h.KeyLen)
	if err != nil {
		return "", fmt.Errorf("derive key: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// NewCredential salts and hashes password into a storable credential string.
func (h *Hasher) NewCredential(password string) (string, error) {
	salt, err := h.GenerateSalt()
	if err != nil {
		return "", err
	}
	digest, err := h.Hash(password, salt)
	if err != nil {
		return "", err
	}
	return salt + CredentialSeparator + digest, nil
}

// Verify recomputes the digest with the stored salt and compares in constant time.
func (h *Hasher) Verify(credential, password string) error {
	salt, stored, ok := strings.Cut(credential, CredentialSeparator)
	if !ok || salt == "" {
		return ErrMalformedCredential
	}
	digest, err := h.Hash(password, salt)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(digest), []byte(stored)) != 1 {
		return ErrBadCredentials
	}
	return nil
}
