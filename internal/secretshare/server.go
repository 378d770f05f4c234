package secretshare

import (
	"context"
	"fmt"

	"github.com/meta-secret/meta-secret-go/internal/model"
	"github.com/meta-secret/meta-secret-go/internal/objects"
)

// Server is the authority over a vault's SsLog, the secret-sharing
// analogue of internal/vault.Server: it accepts claims coming off a
// device's SsDeviceLog and appends them to the shared, vault-scoped
// ledger. Acceptance here has no membership precondition of its own
// beyond what the caller already checked (only a vault member's
// SsDeviceLog should ever be consulted in the first place).
type Server struct {
	Nav *objects.Navigator
}

func NewServer(nav *objects.Navigator) *Server {
	return &Server{Nav: nav}
}

// ApplyDeviceLogClaim accepts claim into vaultName's SsLog. It is
// idempotent: re-applying the exact same (ClaimId, Receiver, Status)
// triple is a no-op.
func (s *Server) ApplyDeviceLogClaim(ctx context.Context, vaultName model.VaultName, claim Claim) error {
	ssLog := NewSsLog(s.Nav, vaultName)
	events, err := ssLog.Events(ctx)
	if err != nil {
		return err
	}
	key := claim.ClaimId + "/" + string(claim.Receiver)
	for _, existing := range events {
		if existing.ClaimId+"/"+string(existing.Receiver) == key && existing.Status == claim.Status {
			return nil
		}
	}
	if err := ssLog.Append(ctx, claim); err != nil {
		return fmt.Errorf("accept claim into ss log: %w", err)
	}
	return nil
}
