package common

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMakeRandURLSafeString(t *testing.T) {
	s, err := MakeRandURLSafeString(6)
	require.NoError(t, err)
	require.Len(t, s, 8)

	raw, err := base64.RawURLEncoding.DecodeString(s)
	require.NoError(t, err)
	require.Len(t, raw, 6)
}

func TestWipeByteArray_ZerosBuffer(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	WipeByteArray(buf)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("expected buf[%d]==0, got %d", i, v)
		}
	}
}

func TestWipeByteArray_NilSafe(t *testing.T) {
	WipeByteArray(nil)
}

func TestGenerateRandByteArray_Basic(t *testing.T) {
	const n = 24
	a := GenerateRandByteArray(n)
	b := GenerateRandByteArray(n)
	require.Len(t, a, n)
	require.Len(t, b, n)
	if string(a) == string(b) {
		t.Logf("warning: two GenerateRandByteArray(%d) results are identical; extremely unlikely", n)
	}
}
