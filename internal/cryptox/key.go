package cryptox

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/labkeeper/internal/filex"
	"github.com/fernet/fernet-go"
)

// KeyEnvVar is the environment variable holding a base64 Fernet key.
const KeyEnvVar = "FERNET_KEY"

// KeySource tells where the process key came from. KeySourceProvided is a
// key handed to NewCipher by the caller.
type KeySource string

const (
	KeySourceEnv       KeySource = "env"
	KeySourceFile      KeySource = "file"
	KeySourceGenerated KeySource = "generated"
	KeySourceProvided  KeySource = "provided"
)

// lookupEnv is a test seam for os.LookupEnv.
var lookupEnv = os.LookupEnv

// resolveKey finds the key material in the following order:
//
//  1. the FERNET_KEY environment variable (base64, standard or URL-safe),
//  2. the contents of keyFile,
//  3. a freshly generated key, written to keyFile with mode 0600.
//
// A key that is present but cannot be decoded is an error; the key file is
// never overwritten in that case, otherwise every row encrypted with the
// old key would become unreadable.
func resolveKey(keyFile string) (*fernet.Key, KeySource, error) {
	if v, ok := lookupEnv(KeyEnvVar); ok && strings.TrimSpace(v) != "" {
		k, err := fernet.DecodeKey(strings.TrimSpace(v))
		if err != nil {
			return nil, "", fmt.Errorf("decode %s: %w", KeyEnvVar, err)
		}
		return k, KeySourceEnv, nil
	}

	data, err := os.ReadFile(keyFile)
	switch {
	case err == nil:
		k, err := fernet.DecodeKey(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, "", fmt.Errorf("decode key file %s: %w", keyFile, err)
		}
		return k, KeySourceFile, nil
	case !errors.Is(err, os.ErrNotExist):
		return nil, "", fmt.Errorf("read key file %s: %w", keyFile, err)
	}

	k := &fernet.Key{}
	if err := k.Generate(); err != nil {
		return nil, "", fmt.Errorf("generate key: %w", err)
	}
	if err := filex.WriteFileAtomic(keyFile, []byte(k.Encode()), 0o600); err != nil {
		return nil, "", fmt.Errorf("persist key file: %w", err)
	}
	return k, KeySourceGenerated, nil
}

// GenerateKey returns a new random key in its URL-safe base64 form, suitable
// for the FERNET_KEY variable or a key file.
func GenerateKey() (string, error) {
	k := &fernet.Key{}
	if err := k.Generate(); err != nil {
		return "", err
	}
	return k.Encode(), nil
}
