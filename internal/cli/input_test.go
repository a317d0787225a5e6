package cli

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("  Ana López \n"), "Patient name", &out)
	require.NoError(t, err)
	require.Equal(t, "Ana López", got)
	require.Equal(t, "Patient name\n> ", out.String())
}

func TestGetSimpleText_PartialLineAtEOF(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("lastline"), "Folio", &out)
	require.NoError(t, err)
	require.Equal(t, "lastline", got)
}

func TestGetSimpleText_EmptyEOF(t *testing.T) {
	var out bytes.Buffer
	_, err := GetSimpleText(rdr(""), "Folio", &out)
	require.Error(t, err)
}

func TestGetMultiline_StopsOnEmptyLine(t *testing.T) {
	var out bytes.Buffer
	got, err := GetMultiline(rdr("{\"glucosa\": 90,\r\n\"urea\": 30}\n\nnext command\n"), "Results", &out)
	require.NoError(t, err)
	require.Equal(t, "{\"glucosa\": 90,\n\"urea\": 30}", got)
}

func TestGetMultiline_EOFWithoutBlankLine(t *testing.T) {
	var out bytes.Buffer
	got, err := GetMultiline(rdr("a@x.com\nb@x.com"), "Emails", &out)
	require.NoError(t, err)
	require.Equal(t, "a@x.com\nb@x.com", got)
}

func TestGetPassword(t *testing.T) {
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	readPassword = func(int) ([]byte, error) { return []byte("s3cret"), nil }

	var out bytes.Buffer
	pw, err := GetPassword("Enter password", &out)
	require.NoError(t, err)
	require.Equal(t, []byte("s3cret"), pw)
	require.Equal(t, "Enter password: \n", out.String())
}

func TestGetPassword_Error(t *testing.T) {
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	readPassword = func(int) ([]byte, error) { return nil, errors.New("boom") }

	var out bytes.Buffer
	_, err := GetPassword("Enter password", &out)
	require.Error(t, err)
}

func rdr(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}
