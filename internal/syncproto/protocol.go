// Package syncproto is the wire protocol and both ends of the sync
// engine: a client Gateway that periodically reconciles local intents
// against the server, and a server ServerEngine that accepts/reads
// objects per request. The request/response union shape and the
// cursor-based pull loop are adapted from a single flat "entries" model
// into one generalized over every object kind this module tracks.
package syncproto

import (
	"github.com/meta-secret/meta-secret-go/internal/crypto"
	"github.com/meta-secret/meta-secret-go/internal/model"
	"github.com/meta-secret/meta-secret-go/internal/secretshare"
	"github.com/meta-secret/meta-secret-go/internal/vault"
)

type RequestKind string

const (
	ReqPushDeviceLogAction   RequestKind = "PushDeviceLogAction"
	ReqPushSsDeviceLogClaim  RequestKind = "PushSsDeviceLogClaim"
	ReqPullVaultLog          RequestKind = "PullVaultLog"
	ReqPullSsLog             RequestKind = "PullSsLog"
	ReqPullWorkflowEnvelope  RequestKind = "PullWorkflowEnvelope"
	ReqPullVaultStatus       RequestKind = "PullVaultStatus"
)

// SyncRequest is the single request envelope every sync operation goes
// through POST /meta_request as. Only the fields relevant to Kind are
// populated.
//
// Tail is carried by ReqPullVaultLog/ReqPullSsLog: it announces the
// highest log sequence number (ArtifactId.Curr) the requester already
// holds, so the server only has to send what comes after it instead of
// replaying the whole chain every cycle. Zero means the requester holds
// nothing yet.
type SyncRequest struct {
	Kind      RequestKind     `json:"kind"`
	VaultName model.VaultName `json:"vaultName,omitempty"`
	DeviceId  model.DeviceId  `json:"deviceId,omitempty"`
	Action    *vault.Action   `json:"action,omitempty"`
	Claim     *secretshare.Claim `json:"claim,omitempty"`
	ClaimId   string          `json:"claimId,omitempty"`
	Receiver  model.DeviceId  `json:"receiver,omitempty"`
	Tail      uint64          `json:"tail,omitempty"`
}

// SyncResponse is the single response envelope every sync operation
// returns.
//
// From and Tail accompany VaultLog/SsLog on a pull response: From is
// the sequence number of the first entry included (0 if the batch is
// empty), Tail is the log's current sequence number as the server sees
// it. A puller that announced Tail=t expects From == t+1 whenever the
// batch is non-empty, and Tail == t when it is empty; anything else
// means the pull doesn't chain onto the local tail (see
// ErrChainGap).
type SyncResponse struct {
	Kind     RequestKind              `json:"kind"`
	OK       bool                     `json:"ok"`
	Error    string                   `json:"error,omitempty"`
	VaultLog []vault.Action           `json:"vaultLog,omitempty"`
	SsLog    []secretshare.Claim      `json:"ssLog,omitempty"`
	From     uint64                   `json:"from,omitempty"`
	Tail     uint64                   `json:"tail,omitempty"`
	Status   *model.VaultStatus       `json:"status,omitempty"`
	Envelope *crypto.EncryptedMessage `json:"envelope,omitempty"`
}
