// Package credentials stores user credentials as salted PBKDF2-HMAC-SHA256
// derivations in a JSON document and manages user accounts on top of it.
package credentials

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"

	"github.com/dmitrijs2005/labkeeper/internal/auth"
	"github.com/dmitrijs2005/labkeeper/internal/common"
	"golang.org/x/crypto/pbkdf2"
)

const (
	Iterations = 200_000
	KeySize    = 32
	SaltSize   = 16
)

// Credential is one user's entry in the credential table.
type Credential struct {
	Salt string    `json:"salt"`
	Hash string    `json:"hash"`
	Role auth.Role `json:"role"`
	Name string    `json:"name,omitempty"`
}

// Table maps username to credential.
type Table map[string]Credential

// Derive returns the 32-byte PBKDF2-HMAC-SHA256 key for password and salt.
func Derive(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, Iterations, KeySize, sha256.New)
}

// NewCredential derives a credential for password with a fresh random salt.
func NewCredential(password string, role auth.Role) Credential {
	salt := common.GenerateRandByteArray(SaltSize)
	key := Derive(password, salt)
	defer common.WipeByteArray(key)

	return Credential{
		Salt: base64.StdEncoding.EncodeToString(salt),
		Hash: base64.StdEncoding.EncodeToString(key),
		Role: role,
	}
}

// Verify reports whether password derives to hashB64 under saltB64. Any
// decoding problem yields false.
func Verify(password, saltB64, hashB64 string) bool {
	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return false
	}
	want, err := base64.StdEncoding.DecodeString(hashB64)
	if err != nil {
		return false
	}

	got := Derive(password, salt)
	defer common.WipeByteArray(got)

	return subtle.ConstantTimeCompare(got, want) == 1
}

// VerifyLogin checks username and password against table. It never fails
// with an error: unknown users and malformed entries are simply rejected.
func VerifyLogin(username, password string, table Table) bool {
	c, ok := table[username]
	if !ok || c.Salt == "" || c.Hash == "" {
		return false
	}
	return Verify(password, c.Salt, c.Hash)
}
