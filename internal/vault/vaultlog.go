package vault

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meta-secret/meta-secret-go/internal/model"
	"github.com/meta-secret/meta-secret-go/internal/objects"
)

// VaultLog is the single authoritative, vault-scoped chain of accepted
// actions. Unlike DeviceLog, which has one chain per device, there is
// exactly one VaultLog per vault; every accepted device intent is
// appended here in the order it was accepted, and that order is what
// Reduce folds deterministically into a VaultData.
type VaultLog struct {
	nav       *objects.Navigator
	vaultName model.VaultName
}

func NewVaultLog(nav *objects.Navigator, vaultName model.VaultName) *VaultLog {
	return &VaultLog{nav: nav, vaultName: vaultName}
}

func (l *VaultLog) fqdn() model.Fqdn {
	return model.VaultLogFqdn(l.vaultName)
}

// Append accepts action into the vault log. Call sites must have already
// decided the action is accept-worthy (membership preconditions met, not
// a duplicate of an already-accepted action id); no signature is checked
// here or by Server.
func (l *VaultLog) Append(ctx context.Context, action Action) error {
	payload, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("encode vault log action: %w", err)
	}
	fqdn := l.fqdn()
	_, hasGenesis, err := l.nav.Repo.FindOne(ctx, model.GenesisId(fqdn))
	if err != nil {
		return fmt.Errorf("check vault log genesis: %w", err)
	}
	if !hasGenesis {
		return l.nav.EnsureInitialized(ctx, fqdn, payload)
	}
	_, err = l.nav.Append(ctx, fqdn, payload)
	return err
}

// Events returns every accepted action in acceptance order.
func (l *VaultLog) Events(ctx context.Context) (ActionLog, error) {
	fqdn := l.fqdn()
	_, hasGenesis, err := l.nav.Repo.FindOne(ctx, model.GenesisId(fqdn))
	if err != nil {
		return ActionLog{}, fmt.Errorf("check vault log genesis: %w", err)
	}
	if !hasGenesis {
		return ActionLog{}, nil
	}
	raw, err := l.nav.FindObjectEvents(ctx, model.GenesisId(fqdn))
	if err != nil {
		return ActionLog{}, fmt.Errorf("read vault log: %w", err)
	}
	log := ActionLog{Actions: make([]Action, 0, len(raw))}
	for _, payload := range raw {
		var a Action
		if err := json.Unmarshal(payload, &a); err != nil {
			return ActionLog{}, fmt.Errorf("decode vault log action: %w", err)
		}
		log.Append(a)
	}
	return log, nil
}

// Since returns every action accepted strictly after sequence number
// tail, along with the sequence number the first returned action landed
// at (from, 0 if none are returned) and the log's current tail sequence
// number. A puller compares from/tail against the tail it announced to
// detect a chain gap before appending anything.
func (l *VaultLog) Since(ctx context.Context, tail uint64) ([]Action, uint64, uint64, error) {
	fqdn := l.fqdn()
	tailId, hasTail, err := l.nav.FindTailId(ctx, fqdn)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("find vault log tail: %w", err)
	}
	if !hasTail || tail >= tailId.Curr {
		return nil, 0, tailId.Curr, nil
	}
	from := model.ArtifactId{Fqdn: fqdn, Curr: tail + 1, Prev: tail}
	raw, err := l.nav.FindObjectEvents(ctx, from)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("read vault log since %d: %w", tail, err)
	}
	actions := make([]Action, 0, len(raw))
	for _, payload := range raw {
		var a Action
		if err := json.Unmarshal(payload, &a); err != nil {
			return nil, 0, 0, fmt.Errorf("decode vault log action: %w", err)
		}
		actions = append(actions, a)
	}
	return actions, from.Curr, tailId.Curr, nil
}

// HasAction reports whether an action with the given id has already been
// accepted, the check that makes re-submitting the same DeviceLog intent
// (e.g. after a retried sync push) a safe no-op.
func (l *VaultLog) HasAction(ctx context.Context, id string) (bool, error) {
	log, err := l.Events(ctx)
	if err != nil {
		return false, err
	}
	for _, a := range log.Actions {
		if a.Id == id {
			return true, nil
		}
	}
	return false, nil
}
