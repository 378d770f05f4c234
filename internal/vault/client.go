package vault

import (
	"context"
	"fmt"

	"github.com/meta-secret/meta-secret-go/internal/model"
	"github.com/meta-secret/meta-secret-go/internal/objects"
)

// Client is the device-side half of the membership state machine: it
// only ever appends intents to its own DeviceLog and reads back its own
// VaultStatus/Vault mirrors. Turning an intent into a vault fact is
// Server's job, reached either locally (single-process deployments) or
// over the sync protocol (internal/syncproto).
type Client struct {
	Nav       *objects.Navigator
	VaultName model.VaultName
	Self      model.UserData
}

func NewClient(nav *objects.Navigator, vaultName model.VaultName, self model.UserData) *Client {
	return &Client{Nav: nav, VaultName: vaultName, Self: self}
}

func (c *Client) deviceLog() *DeviceLog {
	return NewDeviceLog(c.Nav, c.VaultName, c.Self.Device.DeviceId)
}

// SignUp requests creation of a brand new vault with this device as its
// sole member.
func (c *Client) SignUp(ctx context.Context) (Action, error) {
	candidate := c.Self
	return c.deviceLog().Append(ctx, Action{Kind: ActionCreateVault, Candidate: &candidate})
}

// JoinCluster requests membership in a vault that (from this device's
// point of view) already has at least one member.
func (c *Client) JoinCluster(ctx context.Context) (Action, error) {
	candidate := c.Self
	return c.deviceLog().Append(ctx, Action{Kind: ActionJoinCluster, Candidate: &candidate})
}

// AcceptJoin is issued by an existing member to admit a pending
// candidate; requestId is the JoinCluster action id being resolved.
func (c *Client) AcceptJoin(ctx context.Context, requestId string, candidate model.UserData) (Action, error) {
	return c.deviceLog().Append(ctx, Action{
		Kind:       ActionAcceptJoin,
		RequestRef: requestId,
		Candidate:  &candidate,
	})
}

// DeclineJoin is issued by an existing member to reject a pending
// candidate.
func (c *Client) DeclineJoin(ctx context.Context, requestId string, candidate model.UserData) (Action, error) {
	return c.deviceLog().Append(ctx, Action{
		Kind:       ActionDeclineJoin,
		RequestRef: requestId,
		Candidate:  &candidate,
	})
}

// AddMetaPassword records that a new secret has been (or is about to be)
// split and distributed into this vault.
func (c *Client) AddMetaPassword(ctx context.Context, id model.MetaPasswordId) (Action, error) {
	return c.deviceLog().Append(ctx, Action{Kind: ActionAddMetaPassword, MetaPassId: &id})
}

// Status returns this device's locally mirrored VaultStatus, i.e. its
// view as of the last sync pull.
func (c *Client) Status(ctx context.Context) (model.VaultStatus, bool, error) {
	status, ok, err := NewVaultStatusLog(c.Nav, c.VaultName, c.Self.Device.DeviceId).Latest(ctx)
	if err != nil {
		return model.VaultStatus{}, false, fmt.Errorf("read local vault status: %w", err)
	}
	return status, ok, nil
}

// PendingIntents returns DeviceLog actions this device has appended that
// have not yet been accepted into the VaultLog (best checked locally
// when both logs share a Navigator; in a networked deployment the
// gateway compares against the last pushed cursor instead).
func (c *Client) PendingIntents(ctx context.Context) ([]Action, error) {
	intents, err := c.deviceLog().Events(ctx)
	if err != nil {
		return nil, err
	}
	vaultLog := NewVaultLog(c.Nav, c.VaultName)
	var pending []Action
	for _, intent := range intents {
		accepted, err := vaultLog.HasAction(ctx, intent.Id)
		if err != nil {
			return nil, err
		}
		if !accepted {
			pending = append(pending, intent)
		}
	}
	return pending, nil
}
