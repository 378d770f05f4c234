package crypto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meta-secret/meta-secret-go/internal/crypto"
)

func TestShamirSplitCombineRoundTrip(t *testing.T) {
	secret := []byte("hunter2-but-longer-password")
	shares, err := crypto.ShamirSplit(secret, 5, 3)
	require.NoError(t, err)
	assert.Len(t, shares, 5)

	combined, err := crypto.ShamirCombine(shares[:3])
	require.NoError(t, err)
	assert.Equal(t, secret, combined)
}

func TestShamirCombineWithDifferentThreeOfFiveSubsets(t *testing.T) {
	secret := []byte("another secret value")
	shares, err := crypto.ShamirSplit(secret, 5, 3)
	require.NoError(t, err)

	subset := [][]byte{shares[1], shares[2], shares[4]}
	combined, err := crypto.ShamirCombine(subset)
	require.NoError(t, err)
	assert.Equal(t, secret, combined)
}

func TestShamirSplitRejectsOversizedSecret(t *testing.T) {
	secret := make([]byte, crypto.ShamirBlockSize)
	_, err := crypto.ShamirSplit(secret, 3, 2)
	assert.Error(t, err)
}
