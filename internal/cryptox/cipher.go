// Package cryptox implements the symmetric envelope used to keep sensitive
// patient fields encrypted at rest.
//
// Tokens are Fernet tokens (AES-128-CBC + HMAC-SHA256, URL-safe base64), so
// rows written by earlier versions of the application remain readable.
// A token embeds version, timestamp, IV and authentication tag; any change
// to it makes decryption fail.
//
// The key is resolved once, when the Cipher is built, and the Cipher is the
// only owner of it:
//
//	c, err := cryptox.LoadCipher("data/fernet.key")
//	tok, err := c.Encrypt("Ana López")
//	plain := c.Decrypt(tok) // "" on any failure
package cryptox

import (
	"crypto/aes"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/fernet/fernet-go"
)

// ErrDecrypt is returned by Open when a token is malformed, was produced
// with another key, or has been modified.
var ErrDecrypt = errors.New("cryptox: token cannot be decrypted")

const (
	// version(1) + timestamp(8) + iv(16) + hmac(32)
	tokenOverhead = 1 + 8 + aes.BlockSize + sha256.Size
	minTokenLen   = tokenOverhead + aes.BlockSize

	// negative ttl disables the token age check
	noTTL = -1 * time.Second
)

// Cipher wraps and unwraps strings with the process key. It is immutable
// after construction and safe for concurrent use.
type Cipher struct {
	keys   []*fernet.Key
	source KeySource
}

// LoadCipher resolves the key (environment, key file, or a new key persisted
// to keyFile) and returns a Cipher bound to it.
func LoadCipher(keyFile string) (*Cipher, error) {
	k, src, err := resolveKey(keyFile)
	if err != nil {
		return nil, err
	}
	return &Cipher{keys: []*fernet.Key{k}, source: src}, nil
}

// NewCipher builds a Cipher from an encoded key. Mostly useful in tests and
// tools that receive the key from elsewhere.
func NewCipher(encodedKey string) (*Cipher, error) {
	k, err := fernet.DecodeKey(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	return &Cipher{keys: []*fernet.Key{k}, source: KeySourceProvided}, nil
}

// Source reports where the key was loaded from.
func (c *Cipher) Source() KeySource {
	return c.source
}

// Encrypt seals plaintext into a printable token. An empty string is
// encrypted like any other value, so the stored column is never plaintext.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	tok, err := fernet.EncryptAndSign([]byte(plaintext), c.keys[0])
	if err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}
	return string(tok), nil
}

// Open decrypts token and reports failures.
//
// The empty token decrypts to "" without error. Any other token must be
// strict URL-safe base64 of a well-formed, authentic Fernet token;
// otherwise ErrDecrypt is returned. Legacy plaintext values fall into the
// error case.
func (c *Cipher) Open(token string) (string, error) {
	if token == "" {
		return "", nil
	}

	raw, err := base64.URLEncoding.Strict().DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	if len(raw) < minTokenLen || (len(raw)-tokenOverhead)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: bad token length %d", ErrDecrypt, len(raw))
	}

	msg := fernet.VerifyAndDecrypt([]byte(token), noTTL, c.keys)
	if msg == nil {
		return "", ErrDecrypt
	}
	return string(msg), nil
}

// Decrypt is the tolerant form of Open: every failure maps to "".
// Callers that need to tell corruption apart from an empty field use Open.
func (c *Cipher) Decrypt(token string) string {
	s, err := c.Open(token)
	if err != nil {
		return ""
	}
	return s
}
