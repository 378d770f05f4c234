package vault

import (
	"context"
	"fmt"

	"github.com/meta-secret/meta-secret-go/internal/model"
	"github.com/meta-secret/meta-secret-go/internal/objects"
)

// MembershipErrorKind discriminates the precondition a MembershipError
// violates, so callers can branch on the failure instead of parsing
// Reason text.
type MembershipErrorKind string

const (
	KindNotAMember      MembershipErrorKind = "NotAMember"
	KindAlreadyMember   MembershipErrorKind = "AlreadyMember"
	KindAlreadyPending  MembershipErrorKind = "AlreadyPending"
	KindAlreadyDeclined MembershipErrorKind = "AlreadyDeclined"
	KindNoSuchRequest   MembershipErrorKind = "NoSuchRequest"
)

// MembershipError is returned when a DeviceLog action can't be accepted
// because of the current membership state, e.g. a non-member trying to
// add a password, or a second CreateVault racing the first.
type MembershipError struct {
	VaultName model.VaultName
	DeviceId  model.DeviceId
	Kind      MembershipErrorKind
	Reason    string
}

func (e *MembershipError) Error() string {
	return fmt.Sprintf("vault %s: device %s: %s: %s", e.VaultName, e.DeviceId, e.Kind, e.Reason)
}

// Server is the authority over a single vault's VaultLog: it decides
// whether a DeviceLog action gets accepted, appends it, rebuilds the
// Vault snapshot, and updates every affected device's VaultStatus
// mirror. It has no notion of "which process runs it" — in a
// single-device deployment the same process plays server for its own
// vaults; in a networked deployment internal/syncserver wires this to
// incoming sync requests.
type Server struct {
	Nav *objects.Navigator
}

func NewServer(nav *objects.Navigator) *Server {
	return &Server{Nav: nav}
}

// ApplyDeviceLogEvent is the fan-out rule for a single accepted device
// intent: validate against current membership, append to VaultLog,
// rebuild the Vault snapshot, and refresh VaultStatus for every device
// the action concerns. It is idempotent: re-applying an action whose id
// is already in the VaultLog is a no-op that returns nil.
func (s *Server) ApplyDeviceLogEvent(ctx context.Context, vaultName model.VaultName, action Action) error {
	vaultLog := NewVaultLog(s.Nav, vaultName)

	already, err := vaultLog.HasAction(ctx, action.Id)
	if err != nil {
		return err
	}
	if already {
		return nil
	}

	log, err := vaultLog.Events(ctx)
	if err != nil {
		return err
	}
	current := Reduce(vaultName, log)

	if err := validateAction(log, current, action); err != nil {
		return err
	}

	if err := vaultLog.Append(ctx, action); err != nil {
		return fmt.Errorf("accept action into vault log: %w", err)
	}

	log.Append(action)
	updated := Reduce(vaultName, log)
	if err := NewVault(s.Nav, vaultName).AppendSnapshot(ctx, updated); err != nil {
		return fmt.Errorf("persist vault snapshot: %w", err)
	}

	return s.refreshAffectedStatuses(ctx, vaultName, current, updated, action)
}

func validateAction(log ActionLog, current model.VaultData, action Action) error {
	switch action.Kind {
	case ActionCreateVault:
		if len(current.Users) != 0 {
			return &MembershipError{VaultName: current.VaultName, DeviceId: action.Sender, Kind: KindAlreadyMember, Reason: "vault already created"}
		}
	case ActionJoinCluster:
		if action.Candidate == nil {
			return &MembershipError{VaultName: current.VaultName, DeviceId: action.Sender, Kind: KindNoSuchRequest, Reason: "join request missing candidate"}
		}
		candidateId := action.Candidate.Device.DeviceId
		if membership, ok := current.FindUser(candidateId); ok {
			switch {
			case membership.IsMember():
				return &MembershipError{VaultName: current.VaultName, DeviceId: candidateId, Kind: KindAlreadyMember, Reason: "candidate is already a member"}
			case membership.Outsider == model.OutsiderPending:
				return &MembershipError{VaultName: current.VaultName, DeviceId: candidateId, Kind: KindAlreadyPending, Reason: "a join request is already pending for this candidate"}
			}
		}
	case ActionAcceptJoin, ActionDeclineJoin:
		if !current.IsMember(action.Sender) {
			return &MembershipError{VaultName: current.VaultName, DeviceId: action.Sender, Kind: KindNotAMember, Reason: "only an existing member can resolve a join request"}
		}
		if action.Candidate == nil {
			return &MembershipError{VaultName: current.VaultName, DeviceId: action.Sender, Kind: KindNoSuchRequest, Reason: "resolution missing candidate"}
		}
		candidateId := action.Candidate.Device.DeviceId
		request := findJoinRequest(log, action.RequestRef, candidateId)
		if request == nil {
			return &MembershipError{VaultName: current.VaultName, DeviceId: candidateId, Kind: KindNoSuchRequest, Reason: "no pending join request matches requestRef for this candidate"}
		}
		if membership, ok := current.FindUser(candidateId); ok {
			switch {
			case membership.IsMember():
				return &MembershipError{VaultName: current.VaultName, DeviceId: candidateId, Kind: KindAlreadyMember, Reason: "candidate is already a member"}
			case membership.Outsider == model.OutsiderDeclined:
				return &MembershipError{VaultName: current.VaultName, DeviceId: candidateId, Kind: KindAlreadyDeclined, Reason: "join request was already declined"}
			}
		}
	case ActionAddMetaPassword:
		if !current.IsMember(action.Sender) {
			return &MembershipError{VaultName: current.VaultName, DeviceId: action.Sender, Kind: KindNotAMember, Reason: "only a member can add a secret"}
		}
	}
	return nil
}

// findJoinRequest looks up the JoinCluster request that an
// AcceptJoin/DeclineJoin action claims to resolve: its DeviceLog action
// id must match requestRef and its candidate must match the one being
// accepted or declined. Returns nil if no such request exists. It does
// not check whether the request was already resolved; validateAction
// does that from the candidate's current membership.
func findJoinRequest(log ActionLog, requestRef string, candidateId model.DeviceId) *Action {
	if requestRef == "" {
		return nil
	}
	for i, a := range log.Actions {
		if a.Kind == ActionJoinCluster && a.Id == requestRef && a.Candidate != nil && a.Candidate.Device.DeviceId == candidateId {
			return &log.Actions[i]
		}
	}
	return nil
}

// refreshAffectedStatuses updates the VaultStatus mirror for every
// device whose standing could plausibly have changed: the action's
// candidate/sender, plus (for membership changes) the full new member
// set, so a device that just learned it's a member also sees its peers.
func (s *Server) refreshAffectedStatuses(ctx context.Context, vaultName model.VaultName, before, after model.VaultData, action Action) error {
	affected := map[model.DeviceId]struct{}{}
	if action.Candidate != nil {
		affected[action.Candidate.Device.DeviceId] = struct{}{}
	}
	if action.Sender != "" {
		affected[action.Sender] = struct{}{}
	}
	switch action.Kind {
	case ActionCreateVault, ActionAcceptJoin, ActionDeclineJoin, ActionUpdateMembership:
		for id := range before.Users {
			affected[id] = struct{}{}
		}
		for id := range after.Users {
			affected[id] = struct{}{}
		}
	}

	for id := range affected {
		user, ok := after.FindUser(id)
		var forUser model.UserData
		if ok {
			forUser = user.User
		} else if before.Users != nil {
			if u, ok := before.FindUser(id); ok {
				forUser = u.User
			}
		}
		if forUser.Device.DeviceId == "" {
			continue
		}
		status := after.Status(forUser)
		if err := NewVaultStatusLog(s.Nav, vaultName, id).Update(ctx, status); err != nil {
			return fmt.Errorf("update vault status for %s: %w", id, err)
		}
	}
	return nil
}
