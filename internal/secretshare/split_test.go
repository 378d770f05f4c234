package secretshare_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meta-secret/meta-secret-go/internal/secretshare"
)

func TestSplitCombineRoundTrip(t *testing.T) {
	secret := []byte("correct horse battery staple")
	cfg := secretshare.DefaultConfig()

	id, shares, err := secretshare.Split("github", secret, cfg)
	require.NoError(t, err)
	assert.Equal(t, "github", id.Name)
	require.Len(t, shares, cfg.Parts)

	combined, err := secretshare.Combine(shares[:cfg.Threshold])
	require.NoError(t, err)
	assert.Equal(t, secret, combined)
}

func TestSplitProducesDistinctIdsForSameName(t *testing.T) {
	cfg := secretshare.DefaultConfig()
	id1, _, err := secretshare.Split("github", []byte("secret-one"), cfg)
	require.NoError(t, err)
	id2, _, err := secretshare.Split("github", []byte("secret-two"), cfg)
	require.NoError(t, err)

	assert.NotEqual(t, id1.Id, id2.Id)
	assert.NotEqual(t, id1.Salt, id2.Salt)
}
