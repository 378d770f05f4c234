package vault

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/meta-secret/meta-secret-go/internal/model"
	"github.com/meta-secret/meta-secret-go/internal/objects"
)

// DeviceLog is the single-writer chain a device appends its own intents
// to: "I want to create this vault", "I want to join this vault", "add
// this password". Nothing here is authoritative yet; a DeviceLog event
// only becomes a vault fact once the authority on the VaultLog (see
// ApplyDeviceLogEvent) accepts it.
type DeviceLog struct {
	nav       *objects.Navigator
	vaultName model.VaultName
	deviceId  model.DeviceId
}

func NewDeviceLog(nav *objects.Navigator, vaultName model.VaultName, deviceId model.DeviceId) *DeviceLog {
	return &DeviceLog{nav: nav, vaultName: vaultName, deviceId: deviceId}
}

func (d *DeviceLog) fqdn() model.Fqdn {
	return model.DeviceLogFqdn(d.vaultName, d.deviceId)
}

// Append appends intent to this device's log, auto-assigning an Action
// id if the caller left it empty. The first call on a fresh log writes
// the Unit marker and places intent at Genesis; later calls land after
// the current tail. Returns the (possibly id-filled-in) intent.
func (d *DeviceLog) Append(ctx context.Context, intent Action) (Action, error) {
	if intent.Id == "" {
		intent.Id = uuid.NewString()
	}
	if intent.Sender == "" {
		intent.Sender = d.deviceId
	}
	payload, err := json.Marshal(intent)
	if err != nil {
		return Action{}, fmt.Errorf("encode device log intent: %w", err)
	}

	fqdn := d.fqdn()
	_, hasGenesis, err := d.nav.Repo.FindOne(ctx, model.GenesisId(fqdn))
	if err != nil {
		return Action{}, fmt.Errorf("check device log genesis: %w", err)
	}
	if !hasGenesis {
		if err := d.nav.EnsureInitialized(ctx, fqdn, payload); err != nil {
			return Action{}, fmt.Errorf("initialize device log: %w", err)
		}
		return intent, nil
	}
	if _, err := d.nav.Append(ctx, fqdn, payload); err != nil {
		return Action{}, fmt.Errorf("append device log intent: %w", err)
	}
	return intent, nil
}

// Events returns every intent this device has ever appended, in order
// (skipping the Unit marker, which carries no Action).
func (d *DeviceLog) Events(ctx context.Context) ([]Action, error) {
	fqdn := d.fqdn()
	_, hasGenesis, err := d.nav.Repo.FindOne(ctx, model.GenesisId(fqdn))
	if err != nil {
		return nil, fmt.Errorf("check device log genesis: %w", err)
	}
	if !hasGenesis {
		return nil, nil
	}
	raw, err := d.nav.FindObjectEvents(ctx, model.GenesisId(fqdn))
	if err != nil {
		return nil, fmt.Errorf("read device log: %w", err)
	}
	actions := make([]Action, 0, len(raw))
	for _, payload := range raw {
		var a Action
		if err := json.Unmarshal(payload, &a); err != nil {
			return nil, fmt.Errorf("decode device log event: %w", err)
		}
		actions = append(actions, a)
	}
	return actions, nil
}
