package crypto

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintext := []byte(`[{"key_hash":"abc","name":"ops"}]`)

	blob, err := EncryptDocument(plaintext, "hunter2")
	require.NoError(t, err)
	assert.NotContains(t, string(blob), "ops")

	got, err := DecryptDocument(blob, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestDecryptDocument_WrongPassword(t *testing.T) {
	blob, err := EncryptDocument([]byte("secret"), "correct")
	require.NoError(t, err)

	_, err = DecryptDocument(blob, "incorrect")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrong password")
}

func TestEncryptDocument_EmptyPassword(t *testing.T) {
	_, err := EncryptDocument([]byte("x"), "")
	assert.Error(t, err)
}

func TestDecryptDocument_UnsupportedVersion(t *testing.T) {
	_, err := DecryptDocument([]byte(`{"version":99,"salt":"","nonce":"","ciphertext":""}`), "pw")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported version")
}

func TestEncryptDocument_FreshSaltAndNonce(t *testing.T) {
	a, err := EncryptDocument([]byte("same input"), "pw")
	require.NoError(t, err)
	b, err := EncryptDocument([]byte("same input"), "pw")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestLoadDocument_PlainWithoutPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o600))

	raw, err := LoadDocument(path, "")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), raw)
}

func TestLoadKeyring_EncryptedDocument(t *testing.T) {
	doc := []byte(`[
		{"key_hash":"deadbeef","name":"dashboard","scopes":["read"]},
		{"key_hash":"cafef00d","name":"ops","scopes":["admin"],"revoked":true}
	]`)
	blob, err := EncryptDocument(doc, "pw")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "keys.json.enc")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	kr, err := LoadKeyring(path, "pw")
	require.NoError(t, err)
	assert.Len(t, kr.List(), 2)

	rec, err := kr.Resolve(context.Background(), "deadbeef")
	require.NoError(t, err)
	assert.Equal(t, "dashboard", rec.Name)

	rec, err = kr.Resolve(context.Background(), "cafef00d")
	require.NoError(t, err)
	assert.True(t, rec.Revoked)
}

func TestKeyring_ResolveUnknown(t *testing.T) {
	kr := NewKeyring()
	_, err := kr.Resolve(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestKeyring_PutReplaces(t *testing.T) {
	kr := NewKeyring()
	kr.Put(domain.APIKeyInfo{KeyHash: "h1", Name: "old"})
	kr.Put(domain.APIKeyInfo{KeyHash: "h1", Name: "new"})

	rec, err := kr.Resolve(context.Background(), "h1")
	require.NoError(t, err)
	assert.Equal(t, "new", rec.Name)
	assert.Len(t, kr.List(), 1)
}
