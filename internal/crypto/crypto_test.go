package crypto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meta-secret/meta-secret-go/internal/crypto"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	salt, err := crypto.GenerateSalt()
	require.NoError(t, err)
	key := crypto.DeriveKey("a strong passphrase", salt)

	ciphertext, err := crypto.Encrypt(key, []byte("correct horse battery staple"))
	require.NoError(t, err)

	plaintext, err := crypto.Decrypt(key, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "correct horse battery staple", string(plaintext))
}

func TestDecryptFailsUnderWrongKey(t *testing.T) {
	saltA, err := crypto.GenerateSalt()
	require.NoError(t, err)
	saltB, err := crypto.GenerateSalt()
	require.NoError(t, err)

	keyA := crypto.DeriveKey("passphrase-one", saltA)
	keyB := crypto.DeriveKey("passphrase-two", saltB)

	ciphertext, err := crypto.Encrypt(keyA, []byte("top secret"))
	require.NoError(t, err)

	_, err = crypto.Decrypt(keyB, ciphertext)
	assert.Error(t, err)
}

func TestTransportPkFromSkMatchesGeneratedPair(t *testing.T) {
	pk, sk, err := crypto.GenerateBoxKeyPair()
	require.NoError(t, err)
	assert.Equal(t, *pk, crypto.TransportPkFromSk(*sk))
}

func TestBoxSealOpenRoundTrip(t *testing.T) {
	senderPk, senderSk, err := crypto.GenerateBoxKeyPair()
	require.NoError(t, err)
	receiverPk, receiverSk, err := crypto.GenerateBoxKeyPair()
	require.NoError(t, err)

	sealed, err := crypto.BoxSeal([]byte("hello receiver"), receiverPk, senderSk)
	require.NoError(t, err)

	opened, err := crypto.BoxOpen(sealed, senderPk, receiverSk)
	require.NoError(t, err)
	assert.Equal(t, "hello receiver", string(opened))
}

func TestKeyManagerSignVerify(t *testing.T) {
	km, err := crypto.GenerateKeyManager()
	require.NoError(t, err)

	msg := []byte("append this event")
	sig := km.Sign(msg)
	assert.True(t, crypto.Verify(km.SigningPk, msg, sig))
	assert.False(t, crypto.Verify(km.SigningPk, []byte("a different event"), sig))
}

func TestDeviceIdDerivationIsDeterministic(t *testing.T) {
	km, err := crypto.GenerateKeyManager()
	require.NoError(t, err)

	id1 := crypto.ComputeDeviceId(km.TransportPk)
	id2 := km.DeviceId()
	assert.Equal(t, id1, id2)
	assert.Len(t, string(id1), crypto.DeviceIdHashBytes*2)
}
