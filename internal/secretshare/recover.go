package secretshare

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/meta-secret/meta-secret-go/internal/crypto"
	"github.com/meta-secret/meta-secret-go/internal/model"
)

var (
	ErrInsufficientShares   = errors.New("secretshare: not enough shares to cover recipients")
	ErrWorkflowMissing      = errors.New("secretshare: no workflow envelope found for claim")
	ErrThresholdUnreachable = errors.New("secretshare: fewer delivered shares than the split threshold")
)

// RequestRecovery asks each of holders (vault members believed to hold a
// share from a prior Distribute call) to send their share back, one
// Recovery claim per holder so each response lands at its own
// (claimId, receiver) workflow slot. Returns the claim ids, keyed by
// holder, so the caller can later fetch exactly those responses.
func (c *Client) RequestRecovery(ctx context.Context, metaPassId model.MetaPasswordId, holders []model.UserData) (map[model.DeviceId]string, error) {
	claimIds := make(map[model.DeviceId]string, len(holders))
	for _, holder := range holders {
		if holder.Device.DeviceId == c.Self.Device.DeviceId {
			continue
		}
		claim := Claim{
			ClaimId:    uuid.NewString(),
			Kind:       ClaimRecovery,
			VaultName:  c.Self.VaultName,
			MetaPassId: metaPassId,
			Sender:     c.Self.Device.DeviceId,
			Receiver:   holder.Device.DeviceId,
			Status:     model.ShareStatusPending,
		}
		if _, err := c.deviceLog().Append(ctx, claim); err != nil {
			return nil, fmt.Errorf("queue recovery claim for %s: %w", holder.Device.DeviceId, err)
		}
		claimIds[holder.Device.DeviceId] = claim.ClaimId
	}
	return claimIds, nil
}

// RespondToRecovery is called by a share holder once it sees a Recovery
// claim addressed to it: it seals its retained share back to the
// requester and records the claim as Sent.
func (c *Client) RespondToRecovery(ctx context.Context, claim Claim, myShare []byte, requester model.UserData) error {
	requesterPk, err := transportPk(requester)
	if err != nil {
		return err
	}
	channel := crypto.End2End(c.KM.TransportPk, requesterPk)
	envelope, err := crypto.SealEnvelope(myShare, channel, c.KM.TransportSk)
	if err != nil {
		return fmt.Errorf("seal recovery response: %w", err)
	}
	if err := NewSsWorkflow(c.Nav).Distribute(ctx, claim.ClaimId, claim.Sender, envelope); err != nil {
		return err
	}
	sent := claim
	sent.Status = model.ShareStatusSent
	if _, err := c.deviceLog().Append(ctx, sent); err != nil {
		return fmt.Errorf("record recovery response sent: %w", err)
	}
	return nil
}

// CollectAndCombine fetches every response keyed by claimIds, opens
// each envelope as the requesting device, and combines whatever shares
// are available. If fewer than threshold shares have arrived yet it
// returns ErrThresholdUnreachable — the caller should retry after the
// next sync pull. On success, it marks every claim used Delivered: per
// this module's design, that transition is written by the recovering
// device itself once it has proof (a successful Combine), not by the
// server, since only the recovering device can know the combine
// actually worked.
func (c *Client) CollectAndCombine(ctx context.Context, claimIds map[model.DeviceId]string, threshold int) ([]byte, error) {
	workflow := NewSsWorkflow(c.Nav)
	var shares [][]byte
	delivered := map[model.DeviceId]string{}

	for holder, claimId := range claimIds {
		envelope, ok, err := workflow.Fetch(ctx, claimId, c.Self.Device.DeviceId)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		plaintext, err := crypto.OpenEnvelope(envelope, c.KM.TransportPk, c.KM.TransportSk)
		if err != nil {
			return nil, fmt.Errorf("open recovery response from %s: %w", holder, err)
		}
		shares = append(shares, plaintext)
		delivered[holder] = claimId
	}

	if len(shares) < threshold {
		return nil, ErrThresholdUnreachable
	}

	secret, err := Combine(shares)
	if err != nil {
		return nil, err
	}

	for holder, claimId := range delivered {
		mark := Claim{
			ClaimId:  claimId,
			Kind:     ClaimRecovery,
			Sender:   holder,
			Receiver: c.Self.Device.DeviceId,
			Status:   model.ShareStatusDelivered,
		}
		if _, err := c.deviceLog().Append(ctx, mark); err != nil {
			return nil, fmt.Errorf("mark recovery claim %s delivered: %w", claimId, err)
		}
	}

	return secret, nil
}
