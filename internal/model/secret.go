package model

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// MetaPasswordId names one secret split into a vault. Id is derived from
// Name and a random Salt so that two secrets sharing a display name still
// get distinct, collision-resistant identities.
type MetaPasswordId struct {
	Id   string `json:"id"`
	Salt string `json:"salt"`
	Name string `json:"name"`
}

func NewMetaPasswordId(name string) (MetaPasswordId, error) {
	saltBytes := make([]byte, 4)
	if _, err := rand.Read(saltBytes); err != nil {
		return MetaPasswordId{}, fmt.Errorf("failed to generate meta password salt: %w", err)
	}
	salt := hex.EncodeToString(saltBytes)
	h := sha256.Sum256([]byte(name + salt))
	return MetaPasswordId{Id: hex.EncodeToString(h[:]), Salt: salt, Name: name}, nil
}

// SecretShareStatus tracks a single recipient's copy of a split secret
// share as it moves through the distribution workflow.
type SecretShareStatus string

const (
	ShareStatusPending   SecretShareStatus = "Pending"
	ShareStatusSent      SecretShareStatus = "Sent"
	ShareStatusDelivered SecretShareStatus = "Delivered"
)

// SecretDistributionData is one share of a split secret, addressed to a
// single vault member, at a point in its delivery lifecycle.
type SecretDistributionData struct {
	ClaimId    string            `json:"claimId"`
	VaultName  VaultName         `json:"vaultName"`
	MetaPassId MetaPasswordId    `json:"metaPassId"`
	Sender     DeviceId          `json:"sender"`
	Receiver   DeviceId          `json:"receiver"`
	Status     SecretShareStatus `json:"status"`
	Share      Base64Text        `json:"share,omitempty"`
}
