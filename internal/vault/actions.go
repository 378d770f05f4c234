// Package vault implements the device-log -> vault-log -> vault
// membership state machine: per-device intents are appended to a
// DeviceLog, accepted/ordered into a single VaultLog, and folded
// (Reduce) into a VaultData projection that every device mirrors into
// its own VaultStatus.
package vault

import (
	"github.com/meta-secret/meta-secret-go/internal/model"
)

type ActionKind string

const (
	ActionCreateVault      ActionKind = "CreateVault"
	ActionJoinCluster      ActionKind = "JoinCluster"
	ActionAcceptJoin       ActionKind = "AcceptJoin"
	ActionDeclineJoin      ActionKind = "DeclineJoin"
	ActionUpdateMembership ActionKind = "UpdateMembership"
	ActionAddMetaPassword  ActionKind = "AddMetaPassword"
)

// Action is the single event type carried by both DeviceLog (as an
// unresolved intent) and VaultLog (once accepted): a tagged union over
// the membership/secret operations this module supports, using one Go
// struct with an explicit Kind discriminator rather than one type per
// operation.
type Action struct {
	Id   string     `json:"id"`
	Kind ActionKind `json:"kind"`

	// CreateVault / JoinCluster: the device requesting to become/stay a
	// member.
	Candidate *model.UserData `json:"candidate,omitempty"`

	// AcceptJoin / DeclineJoin: the DeviceLog action id of the
	// JoinCluster request being resolved.
	RequestRef string `json:"requestRef,omitempty"`

	// UpdateMembership: the membership row to upsert (used internally by
	// AcceptJoin/DeclineJoin resolution; also the vehicle for a member
	// voluntarily leaving).
	Upsert *model.UserMembership `json:"upsert,omitempty"`

	// AddMetaPassword
	MetaPassId *model.MetaPasswordId `json:"metaPassId,omitempty"`

	// Sender is the device that authored this action. Actions carry no
	// signature, so Sender is not cryptographically verified.
	Sender model.DeviceId `json:"sender"`
}

// ActionLog is the insertion-ordered sequence of accepted VaultLog
// actions. Modeled as a slice rather than a map so that two replicas
// that received the same events in the same order always reduce to a
// bit-identical VaultData — see Reduce.
type ActionLog struct {
	Actions []Action `json:"actions"`
}

func (l *ActionLog) Append(a Action) {
	l.Actions = append(l.Actions, a)
}

// Reduce folds an ordered ActionLog into a VaultData projection. It is a
// pure function: given the same ActionLog prefix, it always produces the
// same VaultData, which is the property that lets every device maintain
// its own copy of vault membership without a central authority deciding
// the "current" state — the order already decided it.
func Reduce(vaultName model.VaultName, log ActionLog) model.VaultData {
	data := model.NewVaultData(vaultName)
	for _, action := range log.Actions {
		applyAction(&data, action)
	}
	return data
}

func applyAction(data *model.VaultData, action Action) {
	switch action.Kind {
	case ActionCreateVault:
		if action.Candidate != nil {
			data.UpdateMembership(model.MemberMembership(*action.Candidate))
		}
	case ActionJoinCluster:
		if action.Candidate != nil {
			data.UpdateMembership(model.OutsiderMembership(*action.Candidate, model.OutsiderPending))
		}
	case ActionAcceptJoin:
		if action.Candidate != nil {
			data.UpdateMembership(model.MemberMembership(*action.Candidate))
		}
	case ActionDeclineJoin:
		if action.Candidate != nil {
			data.UpdateMembership(model.OutsiderMembership(*action.Candidate, model.OutsiderDeclined))
		}
	case ActionUpdateMembership:
		if action.Upsert != nil {
			data.UpdateMembership(*action.Upsert)
		}
	case ActionAddMetaPassword:
		if action.MetaPassId != nil {
			data.AddSecret(*action.MetaPassId)
		}
	}
}
