package secretshare

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/meta-secret/meta-secret-go/internal/model"
	"github.com/meta-secret/meta-secret-go/internal/objects"
)

// SsDeviceLog is the per-device queue of secret-sharing intents a device
// has authored: "I split this secret, distribute these shares" or "I
// need my shares back". Like internal/vault.DeviceLog, it is a
// single-writer append-only chain; a claim here only becomes a workflow
// fact once accepted into the vault-scoped SsLog.
type SsDeviceLog struct {
	nav      *objects.Navigator
	deviceId model.DeviceId
}

func NewSsDeviceLog(nav *objects.Navigator, deviceId model.DeviceId) *SsDeviceLog {
	return &SsDeviceLog{nav: nav, deviceId: deviceId}
}

func (d *SsDeviceLog) fqdn() model.Fqdn {
	return model.SsDeviceLogFqdn(d.deviceId)
}

func (d *SsDeviceLog) Append(ctx context.Context, claim Claim) (Claim, error) {
	if claim.ClaimId == "" {
		claim.ClaimId = uuid.NewString()
	}
	payload, err := json.Marshal(claim)
	if err != nil {
		return Claim{}, fmt.Errorf("encode ss device log claim: %w", err)
	}
	fqdn := d.fqdn()
	_, hasGenesis, err := d.nav.Repo.FindOne(ctx, model.GenesisId(fqdn))
	if err != nil {
		return Claim{}, fmt.Errorf("check ss device log genesis: %w", err)
	}
	if !hasGenesis {
		if err := d.nav.EnsureInitialized(ctx, fqdn, payload); err != nil {
			return Claim{}, err
		}
		return claim, nil
	}
	if _, err := d.nav.Append(ctx, fqdn, payload); err != nil {
		return Claim{}, fmt.Errorf("append ss device log claim: %w", err)
	}
	return claim, nil
}

func (d *SsDeviceLog) Events(ctx context.Context) ([]Claim, error) {
	fqdn := d.fqdn()
	_, hasGenesis, err := d.nav.Repo.FindOne(ctx, model.GenesisId(fqdn))
	if err != nil {
		return nil, fmt.Errorf("check ss device log genesis: %w", err)
	}
	if !hasGenesis {
		return nil, nil
	}
	raw, err := d.nav.FindObjectEvents(ctx, model.GenesisId(fqdn))
	if err != nil {
		return nil, fmt.Errorf("read ss device log: %w", err)
	}
	claims := make([]Claim, 0, len(raw))
	for _, payload := range raw {
		var c Claim
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, fmt.Errorf("decode ss device log claim: %w", err)
		}
		claims = append(claims, c)
	}
	return claims, nil
}
