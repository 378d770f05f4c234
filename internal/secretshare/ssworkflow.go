package secretshare

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meta-secret/meta-secret-go/internal/crypto"
	"github.com/meta-secret/meta-secret-go/internal/model"
	"github.com/meta-secret/meta-secret-go/internal/objects"
)

// SsWorkflow carries the actual bytes of a single share transfer: one
// chain per (claimId, receiver), holding exactly one channel-bound
// envelope. It is immutable once written — delivery status lives in
// SsLog, not here — so a device can safely fetch it multiple times
// while reconciling.
type SsWorkflow struct {
	nav *objects.Navigator
}

func NewSsWorkflow(nav *objects.Navigator) *SsWorkflow {
	return &SsWorkflow{nav: nav}
}

func (w *SsWorkflow) fqdn(claimId string, receiver model.DeviceId) model.Fqdn {
	return model.SsWorkflowFqdn(claimId, receiver)
}

// Distribute writes the envelope carrying one share of a split secret
// for a single receiver. The envelope is pre-sealed by the caller
// (internal/secretshare.Client), already bound to the channel between
// sender and receiver.
func (w *SsWorkflow) Distribute(ctx context.Context, claimId string, receiver model.DeviceId, envelope *crypto.EncryptedMessage) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode ss workflow envelope: %w", err)
	}
	fqdn := w.fqdn(claimId, receiver)
	return w.nav.EnsureInitialized(ctx, fqdn, payload)
}

// Fetch returns the envelope for (claimId, receiver), if one has been
// distributed yet.
func (w *SsWorkflow) Fetch(ctx context.Context, claimId string, receiver model.DeviceId) (*crypto.EncryptedMessage, bool, error) {
	fqdn := w.fqdn(claimId, receiver)
	payload, _, ok, err := w.nav.FindTailEvent(ctx, fqdn)
	if err != nil {
		return nil, false, fmt.Errorf("read ss workflow envelope: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	var envelope crypto.EncryptedMessage
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, false, fmt.Errorf("decode ss workflow envelope: %w", err)
	}
	return &envelope, true, nil
}
