package vault

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meta-secret/meta-secret-go/internal/model"
	"github.com/meta-secret/meta-secret-go/internal/objects"
)

// Vault is the materialized-projection chain: every time the VaultLog
// gains an accepted action, a fresh VaultData snapshot is appended here
// so readers don't have to replay the whole VaultLog from Genesis to
// answer "who is a member right now". It is purely a cache of Reduce's
// output; VaultLog remains the source of truth.
type Vault struct {
	nav       *objects.Navigator
	vaultName model.VaultName
}

func NewVault(nav *objects.Navigator, vaultName model.VaultName) *Vault {
	return &Vault{nav: nav, vaultName: vaultName}
}

func (v *Vault) fqdn() model.Fqdn {
	return model.VaultFqdn(v.vaultName)
}

// AppendSnapshot persists data as the new latest Vault snapshot.
func (v *Vault) AppendSnapshot(ctx context.Context, data model.VaultData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode vault snapshot: %w", err)
	}
	fqdn := v.fqdn()
	_, hasGenesis, err := v.nav.Repo.FindOne(ctx, model.GenesisId(fqdn))
	if err != nil {
		return fmt.Errorf("check vault genesis: %w", err)
	}
	if !hasGenesis {
		return v.nav.EnsureInitialized(ctx, fqdn, payload)
	}
	_, err = v.nav.Append(ctx, fqdn, payload)
	return err
}

// Latest returns the most recently appended VaultData snapshot, or
// ok=false if the vault has never had an accepted action.
func (v *Vault) Latest(ctx context.Context) (model.VaultData, bool, error) {
	payload, _, ok, err := v.nav.FindTailEvent(ctx, v.fqdn())
	if err != nil {
		return model.VaultData{}, false, fmt.Errorf("read vault snapshot: %w", err)
	}
	if !ok {
		return model.VaultData{}, false, nil
	}
	var data model.VaultData
	if err := json.Unmarshal(payload, &data); err != nil {
		return model.VaultData{}, false, fmt.Errorf("decode vault snapshot: %w", err)
	}
	return data, true, nil
}

// Rebuild replays the full VaultLog and appends the resulting snapshot,
// used both to materialize the very first snapshot and, on the client
// side, to fold newly pulled VaultLog events into an up-to-date
// VaultData without trusting a server-sent snapshot directly.
func Rebuild(ctx context.Context, nav *objects.Navigator, vaultName model.VaultName) (model.VaultData, error) {
	log, err := NewVaultLog(nav, vaultName).Events(ctx)
	if err != nil {
		return model.VaultData{}, err
	}
	data := Reduce(vaultName, log)
	if err := NewVault(nav, vaultName).AppendSnapshot(ctx, data); err != nil {
		return model.VaultData{}, err
	}
	return data, nil
}
