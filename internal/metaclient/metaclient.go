// Package metaclient is the single facade a CLI or other front end drives:
// it turns a user's intent (create a vault, join one, store a password,
// recover one) into the right DeviceLog/SsDeviceLog append, then kicks
// the sync gateway once so the intent doesn't sit unsynced until the
// next scheduled tick.
package metaclient

import (
	"context"
	"fmt"

	"github.com/meta-secret/meta-secret-go/internal/crypto"
	"github.com/meta-secret/meta-secret-go/internal/model"
	"github.com/meta-secret/meta-secret-go/internal/objects"
	"github.com/meta-secret/meta-secret-go/internal/secretshare"
	"github.com/meta-secret/meta-secret-go/internal/syncproto"
	"github.com/meta-secret/meta-secret-go/internal/vault"
)

type MetaClient struct {
	Nav     *objects.Navigator
	Self    model.UserData
	KM      *crypto.KeyManager
	Gateway *syncproto.Gateway
}

func New(nav *objects.Navigator, self model.UserData, km *crypto.KeyManager, gateway *syncproto.Gateway) *MetaClient {
	return &MetaClient{Nav: nav, Self: self, KM: km, Gateway: gateway}
}

func (m *MetaClient) vaultClient() *vault.Client {
	return vault.NewClient(m.Nav, m.Self.VaultName, m.Self)
}

func (m *MetaClient) ssClient() *secretshare.Client {
	return secretshare.NewClient(m.Nav, m.Self, m.KM)
}

func (m *MetaClient) syncNow(ctx context.Context) error {
	if m.Gateway == nil {
		return nil
	}
	return m.Gateway.ReconcileOnce(ctx)
}

func (m *MetaClient) CreateVault(ctx context.Context) error {
	if _, err := m.vaultClient().SignUp(ctx); err != nil {
		return fmt.Errorf("create vault: %w", err)
	}
	return m.syncNow(ctx)
}

func (m *MetaClient) JoinVault(ctx context.Context) error {
	if _, err := m.vaultClient().JoinCluster(ctx); err != nil {
		return fmt.Errorf("join vault: %w", err)
	}
	return m.syncNow(ctx)
}

func (m *MetaClient) Status(ctx context.Context) (model.VaultStatus, error) {
	if err := m.syncNow(ctx); err != nil {
		return model.VaultStatus{}, err
	}
	status, ok, err := m.vaultClient().Status(ctx)
	if err != nil {
		return model.VaultStatus{}, err
	}
	if !ok {
		return model.UnknownVaultStatus(m.Self), nil
	}
	return status, nil
}

// AddPassword splits secretBytes under name and distributes shares to
// every current vault member, recording the new MetaPasswordId on this
// device's DeviceLog. The split Config is derived from the vault's
// actual member count (secretshare.ConfigForMembers) rather than a
// fixed default, so it scales with the vault and rejects vaults too
// small to tolerate any share loss.
func (m *MetaClient) AddPassword(ctx context.Context, name string, secretBytes []byte) (model.MetaPasswordId, error) {
	status, err := m.Status(ctx)
	if err != nil {
		return model.MetaPasswordId{}, err
	}
	if !status.IsMember() || status.Vault == nil {
		return model.MetaPasswordId{}, fmt.Errorf("add password: device is not a vault member")
	}

	members := make([]model.UserData, 0, len(status.Vault.Users))
	for _, u := range status.Vault.Users {
		if u.IsMember() {
			members = append(members, u.User)
		}
	}

	cfg, err := secretshare.ConfigForMembers(len(members))
	if err != nil {
		return model.MetaPasswordId{}, fmt.Errorf("add password: %w", err)
	}

	id, err := m.ssClient().Distribute(ctx, name, secretBytes, cfg, members)
	if err != nil {
		return model.MetaPasswordId{}, fmt.Errorf("distribute password shares: %w", err)
	}
	if _, err := m.vaultClient().AddMetaPassword(ctx, id); err != nil {
		return model.MetaPasswordId{}, fmt.Errorf("record meta password: %w", err)
	}
	if err := m.syncNow(ctx); err != nil {
		return model.MetaPasswordId{}, err
	}
	return id, nil
}

// RequestRecovery asks every other vault member holding a share of
// metaPassId to send it back.
func (m *MetaClient) RequestRecovery(ctx context.Context, metaPassId model.MetaPasswordId) (map[model.DeviceId]string, error) {
	status, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}
	if !status.IsMember() || status.Vault == nil {
		return nil, fmt.Errorf("request recovery: device is not a vault member")
	}
	holders := make([]model.UserData, 0, len(status.Vault.Users))
	for _, u := range status.Vault.Users {
		if u.IsMember() {
			holders = append(holders, u.User)
		}
	}
	claimIds, err := m.ssClient().RequestRecovery(ctx, metaPassId, holders)
	if err != nil {
		return nil, err
	}
	return claimIds, m.syncNow(ctx)
}

// CollectRecovery attempts to combine whatever recovery responses have
// arrived so far. Returns secretshare.ErrThresholdUnreachable if not
// enough have come back yet; callers should sync again later and retry.
func (m *MetaClient) CollectRecovery(ctx context.Context, claimIds map[model.DeviceId]string, threshold int) ([]byte, error) {
	if err := m.syncNow(ctx); err != nil {
		return nil, err
	}
	return m.ssClient().CollectAndCombine(ctx, claimIds, threshold)
}
