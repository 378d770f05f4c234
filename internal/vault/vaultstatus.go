package vault

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meta-secret/meta-secret-go/internal/model"
	"github.com/meta-secret/meta-secret-go/internal/objects"
)

// VaultStatusLog is the per-device mirror of where that device stands
// relative to a vault: Outsider(reason) or Member(vault snapshot). It
// exists so a device's own "am I in?" question can be answered by
// reading a single small chain instead of pulling the whole VaultLog.
type VaultStatusLog struct {
	nav       *objects.Navigator
	vaultName model.VaultName
	deviceId  model.DeviceId
}

func NewVaultStatusLog(nav *objects.Navigator, vaultName model.VaultName, deviceId model.DeviceId) *VaultStatusLog {
	return &VaultStatusLog{nav: nav, vaultName: vaultName, deviceId: deviceId}
}

func (s *VaultStatusLog) fqdn() model.Fqdn {
	return model.VaultStatusFqdn(s.vaultName, s.deviceId)
}

func (s *VaultStatusLog) Update(ctx context.Context, status model.VaultStatus) error {
	payload, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("encode vault status: %w", err)
	}
	fqdn := s.fqdn()
	_, hasGenesis, err := s.nav.Repo.FindOne(ctx, model.GenesisId(fqdn))
	if err != nil {
		return fmt.Errorf("check vault status genesis: %w", err)
	}
	if !hasGenesis {
		return s.nav.EnsureInitialized(ctx, fqdn, payload)
	}
	_, err = s.nav.Append(ctx, fqdn, payload)
	return err
}

func (s *VaultStatusLog) Latest(ctx context.Context) (model.VaultStatus, bool, error) {
	payload, _, ok, err := s.nav.FindTailEvent(ctx, s.fqdn())
	if err != nil {
		return model.VaultStatus{}, false, fmt.Errorf("read vault status: %w", err)
	}
	if !ok {
		return model.VaultStatus{}, false, nil
	}
	var status model.VaultStatus
	if err := json.Unmarshal(payload, &status); err != nil {
		return model.VaultStatus{}, false, fmt.Errorf("decode vault status: %w", err)
	}
	return status, true, nil
}
