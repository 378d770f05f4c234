package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meta-secret/meta-secret-go/internal/model"
	"github.com/meta-secret/meta-secret-go/internal/repo"
)

func testId() model.ArtifactId {
	return model.GenesisId(model.VaultLogFqdn("test-vault"))
}

func TestMemRepoSaveFindOne(t *testing.T) {
	r := repo.NewMemRepo()
	ctx := context.Background()
	id := testId()

	_, ok, err := r.FindOne(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Save(ctx, id, []byte("payload")))

	payload, ok, err := r.FindOne(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "payload", string(payload))
}

func TestMemRepoSaveIsCAS(t *testing.T) {
	r := repo.NewMemRepo()
	ctx := context.Background()
	id := testId()

	require.NoError(t, r.Save(ctx, id, []byte("first")))
	err := r.Save(ctx, id, []byte("second"))
	assert.ErrorIs(t, err, repo.ErrAlreadyExists)

	payload, _, err := r.FindOne(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "first", string(payload))
}

func TestMemRepoDelete(t *testing.T) {
	r := repo.NewMemRepo()
	ctx := context.Background()
	id := testId()

	require.NoError(t, r.Save(ctx, id, []byte("payload")))
	require.NoError(t, r.Delete(ctx, id))

	_, ok, err := r.FindOne(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
}
