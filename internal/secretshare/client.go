package secretshare

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/meta-secret/meta-secret-go/internal/crypto"
	"github.com/meta-secret/meta-secret-go/internal/model"
	"github.com/meta-secret/meta-secret-go/internal/objects"
)

// Client is the device-side half of the secret-sharing workflow: it
// splits secrets, seals shares into channel-bound envelopes, and appends
// the resulting claims to its own SsDeviceLog. Turning an intent into an
// accepted SsLog fact is Server's job, exactly as in internal/vault.
type Client struct {
	Nav  *objects.Navigator
	Self model.UserData
	KM   *crypto.KeyManager
}

func NewClient(nav *objects.Navigator, self model.UserData, km *crypto.KeyManager) *Client {
	return &Client{Nav: nav, Self: self, KM: km}
}

func (c *Client) deviceLog() *SsDeviceLog {
	return NewSsDeviceLog(c.Nav, c.Self.Device.DeviceId)
}

// Distribute splits secretBytes and appends one Distribution claim plus
// one sealed SsWorkflow envelope per member of the vault, skipping the
// splitting device itself (it already has the plaintext).
func (c *Client) Distribute(ctx context.Context, name string, secretBytes []byte, cfg Config, members []model.UserData) (model.MetaPasswordId, error) {
	id, shares, err := Split(name, secretBytes, cfg)
	if err != nil {
		return model.MetaPasswordId{}, err
	}

	recipients := make([]model.UserData, 0, len(members))
	for _, m := range members {
		if m.Device.DeviceId != c.Self.Device.DeviceId {
			recipients = append(recipients, m)
		}
	}
	if len(shares) < len(recipients) {
		return model.MetaPasswordId{}, fmt.Errorf("%w: not enough shares (%d) for %d recipients", ErrInsufficientShares, len(shares), len(recipients))
	}

	workflow := NewSsWorkflow(c.Nav)
	for i, recipient := range recipients {
		claim := Claim{
			ClaimId:    uuid.NewString(),
			Kind:       ClaimDistribution,
			VaultName:  c.Self.VaultName,
			MetaPassId: id,
			Sender:     c.Self.Device.DeviceId,
			Receiver:   recipient.Device.DeviceId,
			Status:     model.ShareStatusPending,
		}
		if _, err := c.deviceLog().Append(ctx, claim); err != nil {
			return model.MetaPasswordId{}, fmt.Errorf("queue distribution claim: %w", err)
		}

		recipientPk, err := transportPk(recipient)
		if err != nil {
			return model.MetaPasswordId{}, err
		}
		channel := crypto.End2End(c.KM.TransportPk, recipientPk)
		envelope, err := crypto.SealEnvelope(shares[i], channel, c.KM.TransportSk)
		if err != nil {
			return model.MetaPasswordId{}, fmt.Errorf("seal share for %s: %w", recipient.Device.DeviceId, err)
		}
		if err := workflow.Distribute(ctx, claim.ClaimId, recipient.Device.DeviceId, envelope); err != nil {
			return model.MetaPasswordId{}, err
		}
	}
	return id, nil
}

// ReceiveShare opens the envelope a Distribution claim carries and
// returns the raw share bytes, so the receiving device can retain it for
// a future recovery.
func (c *Client) ReceiveShare(ctx context.Context, claim Claim) ([]byte, error) {
	envelope, ok, err := NewSsWorkflow(c.Nav).Fetch(ctx, claim.ClaimId, c.Self.Device.DeviceId)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: no envelope for claim %s", ErrWorkflowMissing, claim.ClaimId)
	}
	plaintext, err := crypto.OpenEnvelope(envelope, c.KM.TransportPk, c.KM.TransportSk)
	if err != nil {
		return nil, fmt.Errorf("open distributed share: %w", err)
	}
	return plaintext, nil
}

func transportPk(user model.UserData) (crypto.TransportPk, error) {
	var pk crypto.TransportPk
	if len(user.Device.Keys.TransportPk) != 32 {
		return pk, fmt.Errorf("device %s has no usable transport key", user.Device.DeviceId)
	}
	copy(pk[:], user.Device.Keys.TransportPk)
	return pk, nil
}
