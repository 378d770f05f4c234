package repo_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meta-secret/meta-secret-go/internal/repo"
)

func openTestSqlRepo(t *testing.T) *repo.SqlRepo {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metasecret-test.sqlite")
	r, err := repo.OpenSqlRepo(path)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSqlRepoSaveFindOneDelete(t *testing.T) {
	r := openTestSqlRepo(t)
	ctx := context.Background()
	id := testId()

	require.NoError(t, r.Save(ctx, id, []byte("payload")))

	payload, ok, err := r.FindOne(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "payload", string(payload))

	err = r.Save(ctx, id, []byte("other"))
	assert.ErrorIs(t, err, repo.ErrAlreadyExists)

	require.NoError(t, r.Delete(ctx, id))
	_, ok, err = r.FindOne(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
}
