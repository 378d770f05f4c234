package secretshare

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meta-secret/meta-secret-go/internal/model"
	"github.com/meta-secret/meta-secret-go/internal/objects"
)

// SsLog is the vault-scoped, authoritative ledger of every claim that
// has been accepted: one entry per state transition
// (Pending -> Sent -> Delivered), identified by (ClaimId, Receiver). The
// latest entry for a given pair wins, the same last-write-wins-by-log-
// position rule internal/vault.Reduce uses for membership.
type SsLog struct {
	nav       *objects.Navigator
	vaultName model.VaultName
}

func NewSsLog(nav *objects.Navigator, vaultName model.VaultName) *SsLog {
	return &SsLog{nav: nav, vaultName: vaultName}
}

func (l *SsLog) fqdn() model.Fqdn {
	return model.SsLogFqdn(l.vaultName)
}

func (l *SsLog) Append(ctx context.Context, claim Claim) error {
	payload, err := json.Marshal(claim)
	if err != nil {
		return fmt.Errorf("encode ss log claim: %w", err)
	}
	fqdn := l.fqdn()
	_, hasGenesis, err := l.nav.Repo.FindOne(ctx, model.GenesisId(fqdn))
	if err != nil {
		return fmt.Errorf("check ss log genesis: %w", err)
	}
	if !hasGenesis {
		return l.nav.EnsureInitialized(ctx, fqdn, payload)
	}
	_, err = l.nav.Append(ctx, fqdn, payload)
	return err
}

// Events returns every accepted claim entry in log order (including
// repeated entries for the same ClaimId/Receiver representing status
// transitions).
func (l *SsLog) Events(ctx context.Context) ([]Claim, error) {
	fqdn := l.fqdn()
	_, hasGenesis, err := l.nav.Repo.FindOne(ctx, model.GenesisId(fqdn))
	if err != nil {
		return nil, fmt.Errorf("check ss log genesis: %w", err)
	}
	if !hasGenesis {
		return nil, nil
	}
	raw, err := l.nav.FindObjectEvents(ctx, model.GenesisId(fqdn))
	if err != nil {
		return nil, fmt.Errorf("read ss log: %w", err)
	}
	claims := make([]Claim, 0, len(raw))
	for _, payload := range raw {
		var c Claim
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, fmt.Errorf("decode ss log claim: %w", err)
		}
		claims = append(claims, c)
	}
	return claims, nil
}

// Since returns every claim accepted strictly after sequence number
// tail, the sequence number the first returned claim landed at (0 if
// none are returned), and the log's current tail sequence number. Mirrors
// vault.VaultLog.Since so both pull paths let a puller detect a chain
// gap before applying anything.
func (l *SsLog) Since(ctx context.Context, tail uint64) ([]Claim, uint64, uint64, error) {
	fqdn := l.fqdn()
	tailId, hasTail, err := l.nav.FindTailId(ctx, fqdn)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("find ss log tail: %w", err)
	}
	if !hasTail || tail >= tailId.Curr {
		return nil, 0, tailId.Curr, nil
	}
	from := model.ArtifactId{Fqdn: fqdn, Curr: tail + 1, Prev: tail}
	raw, err := l.nav.FindObjectEvents(ctx, from)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("read ss log since %d: %w", tail, err)
	}
	claims := make([]Claim, 0, len(raw))
	for _, payload := range raw {
		var c Claim
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, 0, 0, fmt.Errorf("decode ss log claim: %w", err)
		}
		claims = append(claims, c)
	}
	return claims, from.Curr, tailId.Curr, nil
}

// Reduce folds every Events entry into the latest status per
// (ClaimId, Receiver) pair.
func Reduce(events []Claim) map[string]Claim {
	latest := make(map[string]Claim, len(events))
	for _, c := range events {
		latest[c.ClaimId+"/"+string(c.Receiver)] = c
	}
	return latest
}

// ForReceiver returns the latest claims addressed to receiver, in
// whatever order map iteration gives (callers that need determinism
// should sort by ClaimId themselves).
func ForReceiver(latest map[string]Claim, receiver model.DeviceId) []Claim {
	var out []Claim
	for _, c := range latest {
		if c.Receiver == receiver {
			out = append(out, c)
		}
	}
	return out
}
