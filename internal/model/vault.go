package model

import "sort"

type VaultName string

// VaultData is the materialized projection of a vault's VaultLog: who
// belongs, and which secrets have been split into it. It is never stored
// directly except as the payload of the latest Vault chain event — it is
// always rebuilt by folding VaultLog actions in order (see
// internal/vault.Reduce), which is what gives two replicas that saw the
// same VaultLog prefix a bit-identical VaultData.
type VaultData struct {
	VaultName VaultName                    `json:"vaultName"`
	Users     map[DeviceId]UserMembership  `json:"users"`
	Secrets   map[string]MetaPasswordId    `json:"secrets"`
}

func NewVaultData(name VaultName) VaultData {
	return VaultData{
		VaultName: name,
		Users:     map[DeviceId]UserMembership{},
		Secrets:   map[string]MetaPasswordId{},
	}
}

func (v VaultData) Clone() VaultData {
	out := NewVaultData(v.VaultName)
	for k, val := range v.Users {
		out.Users[k] = val
	}
	for k, val := range v.Secrets {
		out.Secrets[k] = val
	}
	return out
}

// Members returns the current member device ids in a deterministic
// (sorted) order, so fan-out loops over membership are reproducible.
func (v VaultData) Members() []DeviceId {
	var out []DeviceId
	for id, m := range v.Users {
		if m.IsMember() {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (v VaultData) IsMember(id DeviceId) bool {
	m, ok := v.Users[id]
	return ok && m.IsMember()
}

func (v *VaultData) AddSecret(id MetaPasswordId) {
	v.Secrets[id.Id] = id
}

func (v *VaultData) UpdateMembership(m UserMembership) {
	v.Users[m.DeviceId()] = m
}

func (v VaultData) FindUser(id DeviceId) (UserMembership, bool) {
	m, ok := v.Users[id]
	return m, ok
}

// Status computes the VaultStatus a given device observes against this
// vault snapshot.
func (v VaultData) Status(forUser UserData) VaultStatus {
	m, ok := v.FindUser(forUser.Device.DeviceId)
	if !ok {
		return UnknownVaultStatus(forUser)
	}
	if m.IsMember() {
		vault := v.Clone()
		return VaultStatus{Kind: MembershipMember, User: forUser, Vault: &vault}
	}
	return VaultStatus{Kind: MembershipOutsider, User: forUser, Outsider: m.Outsider}
}
