package metaclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meta-secret/meta-secret-go/internal/crypto"
	"github.com/meta-secret/meta-secret-go/internal/metaclient"
	"github.com/meta-secret/meta-secret-go/internal/model"
	"github.com/meta-secret/meta-secret-go/internal/objects"
	"github.com/meta-secret/meta-secret-go/internal/repo"
	"github.com/meta-secret/meta-secret-go/internal/secretshare"
	"github.com/meta-secret/meta-secret-go/internal/syncproto"
	"github.com/meta-secret/meta-secret-go/internal/vault"
)

const testVault model.VaultName = "family-vault"

type harness struct {
	client *metaclient.MetaClient
	self   model.UserData
	km     *crypto.KeyManager
}

func newHarness(t *testing.T, serverNav *objects.Navigator, name string) harness {
	t.Helper()
	km, err := crypto.GenerateKeyManager()
	require.NoError(t, err)
	self := model.UserData{
		VaultName: testVault,
		Device:    model.DeviceData{DeviceId: km.DeviceId(), Name: name, Keys: km.DeviceKeys()},
	}

	engine := syncproto.NewServerEngine(serverNav)
	mux := http.NewServeMux()
	mux.HandleFunc("/meta_request", func(w http.ResponseWriter, r *http.Request) {
		var req syncproto.SyncRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		resp := engine.Handle(r.Context(), req)
		w.Header().Set("Content-Type", "application/json")
		if !resp.OK {
			w.WriteHeader(http.StatusConflict)
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	nav := objects.NewNavigator(repo.NewMemRepo())
	remote := syncproto.NewClient(ts.URL, 5*time.Second)
	gw := syncproto.NewGateway(remote, nav, self, time.Second, 3, logr.Discard())

	return harness{client: metaclient.New(nav, self, km, gw), self: self, km: km}
}

func TestCreateVaultSyncsMembershipImmediately(t *testing.T) {
	ctx := context.Background()
	serverNav := objects.NewNavigator(repo.NewMemRepo())
	h := newHarness(t, serverNav, "owner")

	require.NoError(t, h.client.CreateVault(ctx))

	status, err := h.client.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.IsMember())
}

func TestStatusReturnsUnknownBeforeAnyIntent(t *testing.T) {
	ctx := context.Background()
	serverNav := objects.NewNavigator(repo.NewMemRepo())
	h := newHarness(t, serverNav, "owner")

	status, err := h.client.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.IsNonMember())
}

func TestAddPasswordFailsWhenNotAMember(t *testing.T) {
	ctx := context.Background()
	serverNav := objects.NewNavigator(repo.NewMemRepo())
	h := newHarness(t, serverNav, "outsider")

	_, err := h.client.AddPassword(ctx, "github", []byte("hunter2"))
	assert.Error(t, err)
}

func TestAddPasswordRejectsSingleMemberVault(t *testing.T) {
	ctx := context.Background()
	serverNav := objects.NewNavigator(repo.NewMemRepo())
	owner := newHarness(t, serverNav, "owner")

	require.NoError(t, owner.client.CreateVault(ctx))

	_, err := owner.client.AddPassword(ctx, "github", []byte("hunter2"))
	assert.ErrorIs(t, err, secretshare.ErrThresholdUnreachable)
}

func TestAddPasswordDistributesAmongMembersAndRecordsSecret(t *testing.T) {
	ctx := context.Background()
	serverNav := objects.NewNavigator(repo.NewMemRepo())
	owner := newHarness(t, serverNav, "owner")
	peer := newHarness(t, serverNav, "laptop")

	require.NoError(t, owner.client.CreateVault(ctx))
	require.NoError(t, peer.client.JoinVault(ctx))

	log, err := vault.NewVaultLog(serverNav, testVault).Events(ctx)
	require.NoError(t, err)
	var requestId string
	for _, a := range log.Actions {
		if a.Kind == vault.ActionJoinCluster && a.Candidate != nil && a.Candidate.Device.DeviceId == peer.self.Device.DeviceId {
			requestId = a.Id
		}
	}
	require.NotEmpty(t, requestId)

	ownerVaultClient := vault.NewClient(owner.client.Nav, testVault, owner.self)
	acceptAction, err := ownerVaultClient.AcceptJoin(ctx, requestId, peer.self)
	require.NoError(t, err)
	require.NoError(t, vault.NewServer(serverNav).ApplyDeviceLogEvent(ctx, testVault, acceptAction))
	require.NoError(t, owner.client.Gateway.ReconcileOnce(ctx))

	id, err := owner.client.AddPassword(ctx, "github", []byte("hunter2"))
	require.NoError(t, err)
	assert.Equal(t, "github", id.Name)

	status, err := owner.client.Status(ctx)
	require.NoError(t, err)
	require.NotNil(t, status.Vault)
	_, ok := status.Vault.Secrets[id.Id]
	assert.True(t, ok)
}
