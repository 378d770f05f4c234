// Package orchestrator is the reactive loop that watches local log state
// and acts on it without a human in the loop: auto-accepting pending
// join requests, answering recovery claims addressed to this device, and
// sweeping SsWorkflow entries once their claim reaches Delivered. It is
// the generalized Go shape of a poll-log/react-to-it virtual device.
package orchestrator

import (
	"context"
	"time"

	"github.com/go-logr/logr"

	"github.com/meta-secret/meta-secret-go/internal/crypto"
	"github.com/meta-secret/meta-secret-go/internal/model"
	"github.com/meta-secret/meta-secret-go/internal/objects"
	"github.com/meta-secret/meta-secret-go/internal/secretshare"
	"github.com/meta-secret/meta-secret-go/internal/vault"
)

// ShareStore is the minimal interface the recovery-answering step needs:
// a place a device's previously-received shares live, keyed by the
// MetaPasswordId they belong to. internal/creds or a small dedicated
// store can satisfy this.
type ShareStore interface {
	Get(metaPassId string) ([]byte, bool)
}

type Orchestrator struct {
	Nav        *objects.Navigator
	Self       model.UserData
	KM         *crypto.KeyManager
	Shares     ShareStore
	AutoAccept bool
	Interval   time.Duration
	Log        logr.Logger
}

func New(nav *objects.Navigator, self model.UserData, km *crypto.KeyManager, shares ShareStore, autoAccept bool, interval time.Duration, log logr.Logger) *Orchestrator {
	return &Orchestrator{Nav: nav, Self: self, KM: km, Shares: shares, AutoAccept: autoAccept, Interval: interval, Log: log}
}

// Run blocks, ticking every o.Interval until ctx is canceled.
func (o *Orchestrator) Run(ctx context.Context) {
	ticker := time.NewTicker(o.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := o.Tick(ctx); err != nil {
				o.Log.Error(err, "orchestrator tick failed")
			}
		}
	}
}

// Tick runs one pass of every reactive step.
func (o *Orchestrator) Tick(ctx context.Context) error {
	if o.AutoAccept {
		if err := o.autoAcceptJoins(ctx); err != nil {
			return err
		}
	}
	if err := o.answerRecoveryClaims(ctx); err != nil {
		return err
	}
	return o.sweepDeliveredWorkflows(ctx)
}

// autoAcceptJoins admits every Outsider/Pending member of the vault this
// device already belongs to, since this module's membership model has
// no human-approval gate of its own beyond "an existing member signs
// off" — here, that member is this device acting automatically.
func (o *Orchestrator) autoAcceptJoins(ctx context.Context) error {
	data, ok, err := vault.NewVault(o.Nav, o.Self.VaultName).Latest(ctx)
	if err != nil || !ok {
		return err
	}
	if !data.IsMember(o.Self.Device.DeviceId) {
		return nil
	}

	client := vault.NewClient(o.Nav, o.Self.VaultName, o.Self)
	log, err := vault.NewVaultLog(o.Nav, o.Self.VaultName).Events(ctx)
	if err != nil {
		return err
	}
	for deviceId, membership := range data.Users {
		if membership.Kind != model.MembershipOutsider || membership.Outsider != model.OutsiderPending {
			continue
		}
		requestId := findJoinRequestId(log, deviceId)
		if requestId == "" {
			continue
		}
		if _, err := client.AcceptJoin(ctx, requestId, membership.User); err != nil {
			return err
		}
	}
	return nil
}

func findJoinRequestId(log vault.ActionLog, candidate model.DeviceId) string {
	for _, a := range log.Actions {
		if a.Kind == vault.ActionJoinCluster && a.Candidate != nil && a.Candidate.Device.DeviceId == candidate {
			return a.Id
		}
	}
	return ""
}

// answerRecoveryClaims responds to every Recovery claim addressed to
// this device, still Pending in the vault's SsLog, for a MetaPasswordId
// whose share is present in Shares.
func (o *Orchestrator) answerRecoveryClaims(ctx context.Context) error {
	events, err := secretshare.NewSsLog(o.Nav, o.Self.VaultName).Events(ctx)
	if err != nil {
		return err
	}
	claims := secretshare.ForReceiver(secretshare.Reduce(events), o.Self.Device.DeviceId)

	ssClient := secretshare.NewClient(o.Nav, o.Self, o.KM)
	data, ok, err := vault.NewVault(o.Nav, o.Self.VaultName).Latest(ctx)
	if err != nil || !ok {
		return err
	}

	for _, claim := range claims {
		if claim.Kind != secretshare.ClaimRecovery || claim.Receiver != o.Self.Device.DeviceId || claim.Status != model.ShareStatusPending {
			continue
		}
		share, ok := o.Shares.Get(claim.MetaPassId.Id)
		if !ok {
			continue
		}
		requesterMembership, ok := data.FindUser(claim.Sender)
		if !ok {
			continue
		}
		if err := ssClient.RespondToRecovery(ctx, claim, share, requesterMembership.User); err != nil {
			return err
		}
	}
	return nil
}

// sweepDeliveredWorkflows removes SsWorkflow envelopes whose claim has
// reached Delivered, since the ciphertext has served its purpose and
// there's no reason to keep it around indefinitely.
func (o *Orchestrator) sweepDeliveredWorkflows(ctx context.Context) error {
	events, err := secretshare.NewSsLog(o.Nav, o.Self.VaultName).Events(ctx)
	if err != nil {
		return err
	}
	latest := secretshare.Reduce(events)
	for _, claim := range latest {
		if claim.Status != model.ShareStatusDelivered {
			continue
		}
		id := model.SsWorkflowFqdn(claim.ClaimId, claim.Receiver)
		tailId, found, err := o.Nav.FindTailId(ctx, id)
		if err != nil || !found {
			continue
		}
		if err := o.Nav.Repo.Delete(ctx, tailId); err != nil {
			return err
		}
	}
	return nil
}
