package secretshare_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meta-secret/meta-secret-go/internal/crypto"
	"github.com/meta-secret/meta-secret-go/internal/model"
	"github.com/meta-secret/meta-secret-go/internal/objects"
	"github.com/meta-secret/meta-secret-go/internal/repo"
	"github.com/meta-secret/meta-secret-go/internal/secretshare"
)

const testVault model.VaultName = "family-vault"

type testDevice struct {
	user model.UserData
	km   *crypto.KeyManager
}

func newTestDevice(t *testing.T, name string) testDevice {
	t.Helper()
	km, err := crypto.GenerateKeyManager()
	require.NoError(t, err)
	user := model.UserData{
		VaultName: testVault,
		Device: model.DeviceData{
			DeviceId: km.DeviceId(),
			Name:     name,
			Keys:     km.DeviceKeys(),
		},
	}
	return testDevice{user: user, km: km}
}

func newTestNav() *objects.Navigator {
	return objects.NewNavigator(repo.NewMemRepo())
}

func TestDistributeSealsOneShareToEachOtherMember(t *testing.T) {
	ctx := context.Background()
	nav := newTestNav()

	owner := newTestDevice(t, "owner")
	memberA := newTestDevice(t, "member-a")
	memberB := newTestDevice(t, "member-b")
	members := []model.UserData{owner.user, memberA.user, memberB.user}

	client := secretshare.NewClient(nav, owner.user, owner.km)
	cfg := secretshare.Config{Parts: 3, Threshold: 2}
	id, err := client.Distribute(ctx, "github", []byte("hunter2"), cfg, members)
	require.NoError(t, err)
	assert.NotEmpty(t, id.Id)

	events, err := secretshare.NewSsDeviceLog(nav, owner.user.Device.DeviceId).Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	for _, claim := range events {
		assert.Equal(t, secretshare.ClaimDistribution, claim.Kind)
		assert.Equal(t, model.ShareStatusPending, claim.Status)
	}
}

func TestReceiveShareOpensDistributedEnvelope(t *testing.T) {
	ctx := context.Background()
	nav := newTestNav()

	owner := newTestDevice(t, "owner")
	receiver := newTestDevice(t, "receiver")
	members := []model.UserData{owner.user, receiver.user}

	ownerClient := secretshare.NewClient(nav, owner.user, owner.km)
	cfg := secretshare.Config{Parts: 2, Threshold: 2}
	secret := []byte("db-password")
	_, err := ownerClient.Distribute(ctx, "db", secret, cfg, members)
	require.NoError(t, err)

	ownerEvents, err := secretshare.NewSsDeviceLog(nav, owner.user.Device.DeviceId).Events(ctx)
	require.NoError(t, err)
	require.Len(t, ownerEvents, 1)
	claim := ownerEvents[0]
	assert.Equal(t, receiver.user.Device.DeviceId, claim.Receiver)

	receiverClient := secretshare.NewClient(nav, receiver.user, receiver.km)
	share, err := receiverClient.ReceiveShare(ctx, claim)
	require.NoError(t, err)
	assert.NotEmpty(t, share)
}

func TestReceiveShareFailsForWrongReceiver(t *testing.T) {
	ctx := context.Background()
	nav := newTestNav()

	owner := newTestDevice(t, "owner")
	receiver := newTestDevice(t, "receiver")
	outsider := newTestDevice(t, "outsider")
	members := []model.UserData{owner.user, receiver.user}

	ownerClient := secretshare.NewClient(nav, owner.user, owner.km)
	cfg := secretshare.Config{Parts: 2, Threshold: 2}
	_, err := ownerClient.Distribute(ctx, "db", []byte("db-password"), cfg, members)
	require.NoError(t, err)

	ownerEvents, err := secretshare.NewSsDeviceLog(nav, owner.user.Device.DeviceId).Events(ctx)
	require.NoError(t, err)
	claim := ownerEvents[0]

	outsiderClient := secretshare.NewClient(nav, outsider.user, outsider.km)
	_, err = outsiderClient.ReceiveShare(ctx, claim)
	assert.Error(t, err)
}
