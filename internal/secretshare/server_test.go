package secretshare_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meta-secret/meta-secret-go/internal/model"
	"github.com/meta-secret/meta-secret-go/internal/secretshare"
)

func TestApplyDeviceLogClaimAppendsToSsLog(t *testing.T) {
	ctx := context.Background()
	nav := newTestNav()
	srv := secretshare.NewServer(nav)

	claim := secretshare.Claim{
		ClaimId:   "claim-1",
		Kind:      secretshare.ClaimDistribution,
		VaultName: testVault,
		Sender:    "owner-device",
		Receiver:  "member-device",
		Status:    model.ShareStatusPending,
	}
	require.NoError(t, srv.ApplyDeviceLogClaim(ctx, testVault, claim))

	events, err := secretshare.NewSsLog(nav, testVault).Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, claim, events[0])
}

func TestApplyDeviceLogClaimIsIdempotentForSameStatus(t *testing.T) {
	ctx := context.Background()
	nav := newTestNav()
	srv := secretshare.NewServer(nav)

	claim := secretshare.Claim{ClaimId: "claim-1", Receiver: "member-device", Status: model.ShareStatusPending}
	require.NoError(t, srv.ApplyDeviceLogClaim(ctx, testVault, claim))
	require.NoError(t, srv.ApplyDeviceLogClaim(ctx, testVault, claim))

	events, err := secretshare.NewSsLog(nav, testVault).Events(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestApplyDeviceLogClaimAcceptsStatusTransition(t *testing.T) {
	ctx := context.Background()
	nav := newTestNav()
	srv := secretshare.NewServer(nav)

	pending := secretshare.Claim{ClaimId: "claim-1", Receiver: "member-device", Status: model.ShareStatusPending}
	sent := pending
	sent.Status = model.ShareStatusSent

	require.NoError(t, srv.ApplyDeviceLogClaim(ctx, testVault, pending))
	require.NoError(t, srv.ApplyDeviceLogClaim(ctx, testVault, sent))

	events, err := secretshare.NewSsLog(nav, testVault).Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)

	latest := secretshare.Reduce(events)
	assert.Equal(t, model.ShareStatusSent, latest["claim-1/member-device"].Status)
}

func TestForReceiverFiltersByReceiver(t *testing.T) {
	claims := []secretshare.Claim{
		{ClaimId: "1", Receiver: "a", Status: model.ShareStatusPending},
		{ClaimId: "2", Receiver: "b", Status: model.ShareStatusPending},
	}
	latest := secretshare.Reduce(claims)
	forA := secretshare.ForReceiver(latest, "a")
	require.Len(t, forA, 1)
	assert.Equal(t, "1", forA[0].ClaimId)
}
