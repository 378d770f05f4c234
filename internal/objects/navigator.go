// Package objects implements the generic tail/free-id/event-stream
// traversal every object kind (DeviceLog, VaultLog, Vault, SsLog, ...)
// needs on top of internal/repo. DeviceLog, VaultLog, Vault, and SsLog
// all do the same "scan forward from Unit until the next slot is empty"
// walk, so this package generalizes that walk into a single Navigator
// instead of one near-identical wrapper per object kind.
package objects

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/meta-secret/meta-secret-go/internal/model"
	"github.com/meta-secret/meta-secret-go/internal/repo"
)

type Navigator struct {
	Repo repo.Repository
}

func NewNavigator(r repo.Repository) *Navigator {
	return &Navigator{Repo: r}
}

// FindTailId returns the last occupied ArtifactId in fqdn's chain,
// ok=false if the chain hasn't even been started (no Unit event yet).
func (n *Navigator) FindTailId(ctx context.Context, fqdn model.Fqdn) (model.ArtifactId, bool, error) {
	curr := model.UnitId(fqdn)
	var tail model.ArtifactId
	found := false
	for {
		_, ok, err := n.Repo.FindOne(ctx, curr)
		if err != nil {
			return model.ArtifactId{}, false, fmt.Errorf("find tail id for %s: %w", fqdn, err)
		}
		if !ok {
			break
		}
		tail = curr
		found = true
		curr = curr.Next()
	}
	return tail, found, nil
}

// FindFreeId returns the next position an Append should write to: Unit
// if the chain is empty, or one past the current tail.
func (n *Navigator) FindFreeId(ctx context.Context, fqdn model.Fqdn) (model.ArtifactId, error) {
	tail, ok, err := n.FindTailId(ctx, fqdn)
	if err != nil {
		return model.ArtifactId{}, err
	}
	if !ok {
		return model.UnitId(fqdn), nil
	}
	return tail.Next(), nil
}

// FindTailEvent returns the payload stored at the chain's tail.
func (n *Navigator) FindTailEvent(ctx context.Context, fqdn model.Fqdn) ([]byte, model.ArtifactId, bool, error) {
	tail, ok, err := n.FindTailId(ctx, fqdn)
	if err != nil || !ok {
		return nil, model.ArtifactId{}, ok, err
	}
	payload, ok, err := n.Repo.FindOne(ctx, tail)
	if err != nil {
		return nil, tail, false, fmt.Errorf("find tail event for %s: %w", fqdn, err)
	}
	return payload, tail, ok, nil
}

// FindObjectEvents walks a chain from `from` to its tail, inclusive,
// returning every payload encountered in order. Used to replay a chain
// into its reduced projection, or to stream new events to a peer that
// already has everything up to `from`.
func (n *Navigator) FindObjectEvents(ctx context.Context, from model.ArtifactId) ([][]byte, error) {
	var events [][]byte
	curr := from
	for {
		payload, ok, err := n.Repo.FindOne(ctx, curr)
		if err != nil {
			return events, fmt.Errorf("find object events from %s: %w", from, err)
		}
		if !ok {
			break
		}
		events = append(events, payload)
		curr = curr.Next()
	}
	return events, nil
}

// EnsureInitialized writes the Unit marker and Genesis event for fqdn if
// the chain hasn't been started yet. It is idempotent: calling it on an
// already-initialized chain is a no-op, even under a racing concurrent
// call (ErrAlreadyExists from either Save is swallowed).
func (n *Navigator) EnsureInitialized(ctx context.Context, fqdn model.Fqdn, genesisPayload []byte) error {
	_, ok, err := n.Repo.FindOne(ctx, model.UnitId(fqdn))
	if err != nil {
		return fmt.Errorf("check unit marker for %s: %w", fqdn, err)
	}
	if ok {
		return nil
	}
	unitPayload, err := json.Marshal(model.UnitMarker{Fqdn: fqdn})
	if err != nil {
		return fmt.Errorf("encode unit marker: %w", err)
	}
	if err := n.Repo.Save(ctx, model.UnitId(fqdn), unitPayload); err != nil && !errors.Is(err, repo.ErrAlreadyExists) {
		return fmt.Errorf("write unit marker for %s: %w", fqdn, err)
	}
	if err := n.Repo.Save(ctx, model.GenesisId(fqdn), genesisPayload); err != nil && !errors.Is(err, repo.ErrAlreadyExists) {
		return fmt.Errorf("write genesis event for %s: %w", fqdn, err)
	}
	return nil
}

// Append writes payload to the first free slot in fqdn's chain and
// returns the id it landed at. Safe to retry: if another writer raced
// and filled the slot, the caller should re-read the tail via
// FindFreeId and either skip (idempotent event) or retry.
func (n *Navigator) Append(ctx context.Context, fqdn model.Fqdn, payload []byte) (model.ArtifactId, error) {
	id, err := n.FindFreeId(ctx, fqdn)
	if err != nil {
		return model.ArtifactId{}, err
	}
	if err := n.Repo.Save(ctx, id, payload); err != nil {
		return model.ArtifactId{}, fmt.Errorf("append to %s at %s: %w", fqdn, id, err)
	}
	return id, nil
}
