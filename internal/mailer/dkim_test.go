package mailer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndLoadKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "studio.pem")

	key, err := GenerateKey(path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadPrivateKey(path)
	require.NoError(t, err)
	assert.True(t, key.Equal(loaded))

	// Existing keys are never overwritten
	_, err = GenerateKey(path)
	assert.Error(t, err)
}

func TestSignerDNS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dkim.pem")
	_, err := GenerateKey(path)
	require.NoError(t, err)

	signer, err := NewSignerFromFile(path, "example.com", "studio")
	require.NoError(t, err)

	assert.Equal(t, "studio._domainkey.example.com", signer.DNSName())

	record, err := signer.DNSRecord()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(record, "v=DKIM1; k=rsa; p="))
}

func TestLoadPrivateKeyErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadPrivateKey(filepath.Join(dir, "missing.pem"))
	assert.Error(t, err)

	garbage := filepath.Join(dir, "garbage.pem")
	require.NoError(t, os.WriteFile(garbage, []byte("not pem"), 0600))
	_, err = LoadPrivateKey(garbage)
	assert.Error(t, err)
}
