package encryption

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fraudengine/internal/config"
)

func newLocalManager() *EncryptionManager {
	cfg := &config.Config{}
	cfg.KMS.Enabled = false
	return NewEncryptionManager(cfg, nil)
}

func TestEncryptDecryptField_RoundTrip(t *testing.T) {
	em := newLocalManager()
	ctx := context.Background()

	encrypted, err := em.EncryptField(ctx, "alice@example.com", "email")
	require.NoError(t, err)
	assert.NotEmpty(t, encrypted.EncryptedValue)
	assert.NotEmpty(t, encrypted.EncryptedDEK)
	assert.NotEmpty(t, encrypted.KeyID)

	plaintext, err := em.DecryptField(ctx, encrypted)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", plaintext)
}

func TestEncryptField_DifferentCallsDifferentCiphertext(t *testing.T) {
	em := newLocalManager()
	ctx := context.Background()

	a, err := em.EncryptField(ctx, "same value", "email")
	require.NoError(t, err)
	b, err := em.EncryptField(ctx, "same value", "email")
	require.NoError(t, err)

	assert.NotEqual(t, a.EncryptedValue, b.EncryptedValue)
	assert.NotEqual(t, a.EncryptedDEK, b.EncryptedDEK)
}

func TestDecryptField_CorruptedCiphertextFails(t *testing.T) {
	em := newLocalManager()
	ctx := context.Background()

	encrypted, err := em.EncryptField(ctx, "value", "ip")
	require.NoError(t, err)

	encrypted.EncryptedValue = "not-valid-base64!!"
	_, err = em.DecryptField(ctx, encrypted)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestKeyCache_ClearAndSize(t *testing.T) {
	em := newLocalManager()
	ctx := context.Background()

	_, err := em.EncryptField(ctx, "value", "phone")
	require.NoError(t, err)
	assert.Equal(t, 1, em.GetCacheSize())

	em.ClearCache()
	assert.Equal(t, 0, em.GetCacheSize())
}
