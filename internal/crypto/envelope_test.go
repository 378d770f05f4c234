package crypto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meta-secret/meta-secret-go/internal/crypto"
)

func TestSealOpenEnvelopeEnd2End(t *testing.T) {
	senderPk, senderSk, err := crypto.GenerateBoxKeyPair()
	require.NoError(t, err)
	receiverPk, receiverSk, err := crypto.GenerateBoxKeyPair()
	require.NoError(t, err)

	channel := crypto.End2End(*senderPk, *receiverPk)
	msg, err := crypto.SealEnvelope([]byte("a password share"), channel, *senderSk)
	require.NoError(t, err)

	plaintext, err := crypto.OpenEnvelope(msg, *receiverPk, *receiverSk)
	require.NoError(t, err)
	assert.Equal(t, "a password share", string(plaintext))
}

func TestOpenEnvelopeFailsForNonMemberIdentity(t *testing.T) {
	senderPk, senderSk, err := crypto.GenerateBoxKeyPair()
	require.NoError(t, err)
	receiverPk, _, err := crypto.GenerateBoxKeyPair()
	require.NoError(t, err)
	outsiderPk, outsiderSk, err := crypto.GenerateBoxKeyPair()
	require.NoError(t, err)

	channel := crypto.End2End(*senderPk, *receiverPk)
	msg, err := crypto.SealEnvelope([]byte("a password share"), channel, *senderSk)
	require.NoError(t, err)

	_, err = crypto.OpenEnvelope(msg, *outsiderPk, *outsiderSk)
	assert.ErrorIs(t, err, crypto.ErrInvalidRecipient)
}

func TestSingleDeviceChannelIsLoopback(t *testing.T) {
	pk, sk, err := crypto.GenerateBoxKeyPair()
	require.NoError(t, err)

	channel := crypto.SingleDevice(*pk)
	msg, err := crypto.SealEnvelope([]byte("self-addressed"), channel, *sk)
	require.NoError(t, err)

	plaintext, err := crypto.OpenEnvelope(msg, *pk, *sk)
	require.NoError(t, err)
	assert.Equal(t, "self-addressed", string(plaintext))
}

func TestChannelPeerReturnsOtherParty(t *testing.T) {
	a, _, err := crypto.GenerateBoxKeyPair()
	require.NoError(t, err)
	b, _, err := crypto.GenerateBoxKeyPair()
	require.NoError(t, err)

	channel := crypto.End2End(*a, *b)
	peer, err := channel.Peer(*a)
	require.NoError(t, err)
	assert.Equal(t, *b, peer)

	peer, err = channel.Peer(*b)
	require.NoError(t, err)
	assert.Equal(t, *a, peer)
}
