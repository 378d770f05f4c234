package syncproto

import (
	"context"
	"fmt"

	"github.com/meta-secret/meta-secret-go/internal/objects"
	"github.com/meta-secret/meta-secret-go/internal/secretshare"
	"github.com/meta-secret/meta-secret-go/internal/vault"
)

// ServerEngine is the transport-agnostic core of the sync server: given
// a decoded SyncRequest it does whatever internal/vault or
// internal/secretshare work the request asks for and returns a
// SyncResponse. internal/syncserver is the thin net/http shell around
// this.
type ServerEngine struct {
	Nav       *objects.Navigator
	Vault     *vault.Server
	SecretShare *secretshare.Server
}

func NewServerEngine(nav *objects.Navigator) *ServerEngine {
	return &ServerEngine{
		Nav:         nav,
		Vault:       vault.NewServer(nav),
		SecretShare: secretshare.NewServer(nav),
	}
}

func (e *ServerEngine) Handle(ctx context.Context, req SyncRequest) SyncResponse {
	resp, err := e.dispatch(ctx, req)
	if err != nil {
		return SyncResponse{Kind: req.Kind, OK: false, Error: err.Error()}
	}
	resp.Kind = req.Kind
	resp.OK = true
	return resp
}

func (e *ServerEngine) dispatch(ctx context.Context, req SyncRequest) (SyncResponse, error) {
	switch req.Kind {
	case ReqPushDeviceLogAction:
		if req.Action == nil {
			return SyncResponse{}, fmt.Errorf("push device log action: missing action")
		}
		if err := e.Vault.ApplyDeviceLogEvent(ctx, req.VaultName, *req.Action); err != nil {
			return SyncResponse{}, err
		}
		return SyncResponse{}, nil

	case ReqPushSsDeviceLogClaim:
		if req.Claim == nil {
			return SyncResponse{}, fmt.Errorf("push ss device log claim: missing claim")
		}
		if err := e.SecretShare.ApplyDeviceLogClaim(ctx, req.VaultName, *req.Claim); err != nil {
			return SyncResponse{}, err
		}
		return SyncResponse{}, nil

	case ReqPullVaultLog:
		actions, from, tail, err := vault.NewVaultLog(e.Nav, req.VaultName).Since(ctx, req.Tail)
		if err != nil {
			return SyncResponse{}, err
		}
		return SyncResponse{VaultLog: actions, From: from, Tail: tail}, nil

	case ReqPullSsLog:
		claims, from, tail, err := secretshare.NewSsLog(e.Nav, req.VaultName).Since(ctx, req.Tail)
		if err != nil {
			return SyncResponse{}, err
		}
		return SyncResponse{SsLog: claims, From: from, Tail: tail}, nil

	case ReqPullWorkflowEnvelope:
		envelope, ok, err := secretshare.NewSsWorkflow(e.Nav).Fetch(ctx, req.ClaimId, req.Receiver)
		if err != nil {
			return SyncResponse{}, err
		}
		if !ok {
			return SyncResponse{}, fmt.Errorf("no workflow envelope for claim %s receiver %s", req.ClaimId, req.Receiver)
		}
		return SyncResponse{Envelope: envelope}, nil

	case ReqPullVaultStatus:
		status, ok, err := vault.NewVaultStatusLog(e.Nav, req.VaultName, req.DeviceId).Latest(ctx)
		if err != nil {
			return SyncResponse{}, err
		}
		if !ok {
			return SyncResponse{}, fmt.Errorf("no vault status yet for device %s", req.DeviceId)
		}
		return SyncResponse{Status: &status}, nil

	default:
		return SyncResponse{}, fmt.Errorf("unknown sync request kind %q", req.Kind)
	}
}
