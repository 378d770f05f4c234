package vault_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meta-secret/meta-secret-go/internal/model"
	"github.com/meta-secret/meta-secret-go/internal/objects"
	"github.com/meta-secret/meta-secret-go/internal/repo"
	"github.com/meta-secret/meta-secret-go/internal/vault"
)

const testVault model.VaultName = "family-vault"

func testUser(id model.DeviceId) model.UserData {
	return model.UserData{VaultName: testVault, Device: model.DeviceData{DeviceId: id, Name: string(id)}}
}

func newTestNav() *objects.Navigator {
	return objects.NewNavigator(repo.NewMemRepo())
}

func TestSignUpCreatesSoleMember(t *testing.T) {
	ctx := context.Background()
	nav := newTestNav()
	owner := testUser("owner-device")
	srv := vault.NewServer(nav)
	client := vault.NewClient(nav, testVault, owner)

	action, err := client.SignUp(ctx)
	require.NoError(t, err)
	require.NoError(t, srv.ApplyDeviceLogEvent(ctx, testVault, action))

	data, ok, err := vault.NewVault(nav, testVault).Latest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []model.DeviceId{"owner-device"}, data.Members())
}

func TestJoinClusterThenAcceptMakesMember(t *testing.T) {
	ctx := context.Background()
	nav := newTestNav()
	srv := vault.NewServer(nav)

	owner := testUser("owner-device")
	ownerClient := vault.NewClient(nav, testVault, owner)
	signUp, err := ownerClient.SignUp(ctx)
	require.NoError(t, err)
	require.NoError(t, srv.ApplyDeviceLogEvent(ctx, testVault, signUp))

	candidate := testUser("laptop-device")
	candidateClient := vault.NewClient(nav, testVault, candidate)
	joinReq, err := candidateClient.JoinCluster(ctx)
	require.NoError(t, err)
	require.NoError(t, srv.ApplyDeviceLogEvent(ctx, testVault, joinReq))

	data, ok, err := vault.NewVault(nav, testVault).Latest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	membership, ok := data.FindUser("laptop-device")
	require.True(t, ok)
	assert.Equal(t, model.OutsiderPending, membership.Outsider)

	accept, err := ownerClient.AcceptJoin(ctx, joinReq.Id, candidate)
	require.NoError(t, err)
	require.NoError(t, srv.ApplyDeviceLogEvent(ctx, testVault, accept))

	data, ok, err = vault.NewVault(nav, testVault).Latest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, data.IsMember("laptop-device"))

	status, ok, err := vault.NewVaultStatusLog(nav, testVault, "laptop-device").Latest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, status.IsMember())
}

func TestAddMetaPasswordRejectedForNonMember(t *testing.T) {
	ctx := context.Background()
	nav := newTestNav()
	srv := vault.NewServer(nav)

	owner := testUser("owner-device")
	ownerClient := vault.NewClient(nav, testVault, owner)
	signUp, err := ownerClient.SignUp(ctx)
	require.NoError(t, err)
	require.NoError(t, srv.ApplyDeviceLogEvent(ctx, testVault, signUp))

	outsider := testUser("outsider-device")
	outsiderClient := vault.NewClient(nav, testVault, outsider)
	metaId, err := model.NewMetaPasswordId("github")
	require.NoError(t, err)
	addAction, err := outsiderClient.AddMetaPassword(ctx, metaId)
	require.NoError(t, err)

	err = srv.ApplyDeviceLogEvent(ctx, testVault, addAction)
	var membershipErr *vault.MembershipError
	assert.ErrorAs(t, err, &membershipErr)
}

func TestAcceptJoinRejectsUnknownRequestRef(t *testing.T) {
	ctx := context.Background()
	nav := newTestNav()
	srv := vault.NewServer(nav)

	owner := testUser("owner-device")
	ownerClient := vault.NewClient(nav, testVault, owner)
	signUp, err := ownerClient.SignUp(ctx)
	require.NoError(t, err)
	require.NoError(t, srv.ApplyDeviceLogEvent(ctx, testVault, signUp))

	candidate := testUser("laptop-device")
	accept, err := ownerClient.AcceptJoin(ctx, "no-such-request", candidate)
	require.NoError(t, err)

	err = srv.ApplyDeviceLogEvent(ctx, testVault, accept)
	var membershipErr *vault.MembershipError
	require.ErrorAs(t, err, &membershipErr)
	assert.Equal(t, vault.KindNoSuchRequest, membershipErr.Kind)
}

func TestAcceptJoinRejectsAlreadyMemberCandidate(t *testing.T) {
	ctx := context.Background()
	nav := newTestNav()
	srv := vault.NewServer(nav)

	owner := testUser("owner-device")
	ownerClient := vault.NewClient(nav, testVault, owner)
	signUp, err := ownerClient.SignUp(ctx)
	require.NoError(t, err)
	require.NoError(t, srv.ApplyDeviceLogEvent(ctx, testVault, signUp))

	candidate := testUser("laptop-device")
	candidateClient := vault.NewClient(nav, testVault, candidate)
	joinReq, err := candidateClient.JoinCluster(ctx)
	require.NoError(t, err)
	require.NoError(t, srv.ApplyDeviceLogEvent(ctx, testVault, joinReq))

	accept, err := ownerClient.AcceptJoin(ctx, joinReq.Id, candidate)
	require.NoError(t, err)
	require.NoError(t, srv.ApplyDeviceLogEvent(ctx, testVault, accept))

	// Re-resolving the same request once the candidate is already a
	// member must fail instead of silently re-accepting.
	secondAccept, err := ownerClient.AcceptJoin(ctx, joinReq.Id, candidate)
	require.NoError(t, err)
	err = srv.ApplyDeviceLogEvent(ctx, testVault, secondAccept)
	var membershipErr *vault.MembershipError
	require.ErrorAs(t, err, &membershipErr)
	assert.Equal(t, vault.KindAlreadyMember, membershipErr.Kind)
}

func TestAcceptJoinRejectsAlreadyDeclinedCandidate(t *testing.T) {
	ctx := context.Background()
	nav := newTestNav()
	srv := vault.NewServer(nav)

	owner := testUser("owner-device")
	ownerClient := vault.NewClient(nav, testVault, owner)
	signUp, err := ownerClient.SignUp(ctx)
	require.NoError(t, err)
	require.NoError(t, srv.ApplyDeviceLogEvent(ctx, testVault, signUp))

	candidate := testUser("laptop-device")
	candidateClient := vault.NewClient(nav, testVault, candidate)
	joinReq, err := candidateClient.JoinCluster(ctx)
	require.NoError(t, err)
	require.NoError(t, srv.ApplyDeviceLogEvent(ctx, testVault, joinReq))

	decline, err := ownerClient.DeclineJoin(ctx, joinReq.Id, candidate)
	require.NoError(t, err)
	require.NoError(t, srv.ApplyDeviceLogEvent(ctx, testVault, decline))

	accept, err := ownerClient.AcceptJoin(ctx, joinReq.Id, candidate)
	require.NoError(t, err)
	err = srv.ApplyDeviceLogEvent(ctx, testVault, accept)
	var membershipErr *vault.MembershipError
	require.ErrorAs(t, err, &membershipErr)
	assert.Equal(t, vault.KindAlreadyDeclined, membershipErr.Kind)
}

func TestJoinClusterRejectsDuplicatePendingRequest(t *testing.T) {
	ctx := context.Background()
	nav := newTestNav()
	srv := vault.NewServer(nav)

	owner := testUser("owner-device")
	ownerClient := vault.NewClient(nav, testVault, owner)
	signUp, err := ownerClient.SignUp(ctx)
	require.NoError(t, err)
	require.NoError(t, srv.ApplyDeviceLogEvent(ctx, testVault, signUp))

	candidate := testUser("laptop-device")
	candidateClient := vault.NewClient(nav, testVault, candidate)
	firstJoin, err := candidateClient.JoinCluster(ctx)
	require.NoError(t, err)
	require.NoError(t, srv.ApplyDeviceLogEvent(ctx, testVault, firstJoin))

	secondJoin, err := candidateClient.JoinCluster(ctx)
	require.NoError(t, err)
	err = srv.ApplyDeviceLogEvent(ctx, testVault, secondJoin)
	var membershipErr *vault.MembershipError
	require.ErrorAs(t, err, &membershipErr)
	assert.Equal(t, vault.KindAlreadyPending, membershipErr.Kind)
}

func TestApplyDeviceLogEventIsIdempotent(t *testing.T) {
	ctx := context.Background()
	nav := newTestNav()
	srv := vault.NewServer(nav)

	owner := testUser("owner-device")
	ownerClient := vault.NewClient(nav, testVault, owner)
	signUp, err := ownerClient.SignUp(ctx)
	require.NoError(t, err)

	require.NoError(t, srv.ApplyDeviceLogEvent(ctx, testVault, signUp))
	require.NoError(t, srv.ApplyDeviceLogEvent(ctx, testVault, signUp))

	log, err := vault.NewVaultLog(nav, testVault).Events(ctx)
	require.NoError(t, err)
	assert.Len(t, log.Actions, 1)
}

func TestPendingIntentsExcludesAcceptedActions(t *testing.T) {
	ctx := context.Background()
	nav := newTestNav()
	srv := vault.NewServer(nav)

	owner := testUser("owner-device")
	ownerClient := vault.NewClient(nav, testVault, owner)
	signUp, err := ownerClient.SignUp(ctx)
	require.NoError(t, err)

	pending, err := ownerClient.PendingIntents(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	require.NoError(t, srv.ApplyDeviceLogEvent(ctx, testVault, signUp))

	pending, err = ownerClient.PendingIntents(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 0)
}
