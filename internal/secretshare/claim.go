package secretshare

import "github.com/meta-secret/meta-secret-go/internal/model"

type ClaimKind string

const (
	// ClaimDistribution: the device that just split a secret is pushing
	// one share to each vault member.
	ClaimDistribution ClaimKind = "Distribution"
	// ClaimRecovery: a device that lost local access is asking members
	// to send back the shares it gave them.
	ClaimRecovery ClaimKind = "Recovery"
)

// Claim is one (sender, receiver) edge of a secret-sharing workflow: a
// single share moving in one direction for one MetaPasswordId. Flat and
// self-contained, with no Unit/Genesis distinction in its own right —
// the chains built on top of it (SsDeviceLog, SsLog) get that bookkeeping
// from the shared objects.Navigator, not from this type.
type Claim struct {
	ClaimId    string                  `json:"claimId"`
	Kind       ClaimKind               `json:"kind"`
	VaultName  model.VaultName         `json:"vaultName"`
	MetaPassId model.MetaPasswordId    `json:"metaPassId"`
	Sender     model.DeviceId          `json:"sender"`
	Receiver   model.DeviceId          `json:"receiver"`
	Status     model.SecretShareStatus `json:"status"`
}
