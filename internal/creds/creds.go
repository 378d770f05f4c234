// Package creds manages the credentials every device/user identity in
// this module needs: the device's long-lived KeyManager, and, once it
// has joined a vault, the UserData binding that key to a vault name.
// Device credentials (the secret keys) are stored encrypted at rest
// under a master key; user credentials hold only a vault name and are
// stored as plain JSON.
package creds

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"

	"github.com/meta-secret/meta-secret-go/internal/crypto"
	"github.com/meta-secret/meta-secret-go/internal/model"
	"github.com/meta-secret/meta-secret-go/internal/repo"
)

// DeviceCreds is the identity of a single device: its signing/transport
// keypairs and the human-readable name it presents to the vault.
type DeviceCreds struct {
	DeviceName string             `json:"deviceName"`
	KeyManager *crypto.KeyManager `json:"-"`
}

type deviceCredsWire struct {
	DeviceName  string `json:"deviceName"`
	SigningSk   []byte `json:"signingSk"`
	TransportSk []byte `json:"transportSk"`
}

func (d DeviceCreds) DeviceData() model.DeviceData {
	return model.DeviceData{
		DeviceId: d.KeyManager.DeviceId(),
		Name:     d.DeviceName,
		Keys:     d.KeyManager.DeviceKeys(),
	}
}

// UserCreds binds a DeviceCreds to a specific vault it has (attempted
// to) join. A device can hold one UserCreds per vault it knows about.
type UserCreds struct {
	VaultName model.VaultName `json:"vaultName"`
	Device    DeviceCreds     `json:"-"`
}

func (u UserCreds) UserData() model.UserData {
	return model.UserData{VaultName: u.VaultName, Device: u.Device.DeviceData()}
}

// PersistentCredentials stores device credentials encrypted under
// masterKey and user credentials unencrypted in repo, keyed by the fixed
// DeviceCreds/UserCreds Fqdns.
type PersistentCredentials struct {
	Repo      repo.Repository
	MasterKey []byte
}

func NewPersistentCredentials(r repo.Repository, masterKey []byte) *PersistentCredentials {
	return &PersistentCredentials{Repo: r, MasterKey: masterKey}
}

// deviceCredsSlot is the single fixed position device credentials are
// kept at; there is exactly one DeviceCreds per repo.
func deviceCredsSlot(placeholder model.DeviceId) model.ArtifactId {
	return model.GenesisId(model.DeviceCredsFqdn(placeholder))
}

// GetOrGenerateDeviceCreds loads the device's credentials if they
// already exist, generating and persisting a fresh KeyManager otherwise.
// deviceName is only used the first time; afterwards the stored name
// wins.
func (p *PersistentCredentials) GetOrGenerateDeviceCreds(ctx context.Context, deviceName string) (*DeviceCreds, error) {
	slot := deviceCredsSlot("self")
	payload, ok, err := p.Repo.FindOne(ctx, slot)
	if err != nil {
		return nil, fmt.Errorf("load device creds: %w", err)
	}
	if ok {
		return p.decodeDeviceCreds(payload)
	}

	km, err := crypto.GenerateKeyManager()
	if err != nil {
		return nil, fmt.Errorf("generate device keys: %w", err)
	}
	dc := &DeviceCreds{DeviceName: deviceName, KeyManager: km}
	encoded, err := p.encodeDeviceCreds(dc)
	if err != nil {
		return nil, err
	}
	if err := p.Repo.Save(ctx, slot, encoded); err != nil {
		return nil, fmt.Errorf("persist device creds: %w", err)
	}
	return dc, nil
}

func (p *PersistentCredentials) encodeDeviceCreds(dc *DeviceCreds) ([]byte, error) {
	wire := deviceCredsWire{
		DeviceName:  dc.DeviceName,
		SigningSk:   dc.KeyManager.SigningSk,
		TransportSk: dc.KeyManager.TransportSk[:],
	}
	plaintext, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("encode device creds: %w", err)
	}
	ciphertext, err := crypto.Encrypt(p.MasterKey, plaintext)
	if err != nil {
		return nil, fmt.Errorf("seal device creds: %w", err)
	}
	return ciphertext, nil
}

func (p *PersistentCredentials) decodeDeviceCreds(ciphertext []byte) (*DeviceCreds, error) {
	plaintext, err := crypto.Decrypt(p.MasterKey, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("unseal device creds: %w", err)
	}
	var wire deviceCredsWire
	if err := json.Unmarshal(plaintext, &wire); err != nil {
		return nil, fmt.Errorf("decode device creds: %w", err)
	}
	km, err := keyManagerFromSecrets(wire.SigningSk, wire.TransportSk)
	if err != nil {
		return nil, err
	}
	return &DeviceCreds{DeviceName: wire.DeviceName, KeyManager: km}, nil
}

func keyManagerFromSecrets(signingSk, transportSkBytes []byte) (*crypto.KeyManager, error) {
	if len(signingSk) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("corrupt signing secret key length %d", len(signingSk))
	}
	if len(transportSkBytes) != 32 {
		return nil, fmt.Errorf("corrupt transport secret key length %d", len(transportSkBytes))
	}
	sk := ed25519.PrivateKey(append([]byte(nil), signingSk...))
	pk := sk.Public().(ed25519.PublicKey)

	var transportSk crypto.TransportSk
	copy(transportSk[:], transportSkBytes)
	transportPk := crypto.TransportPkFromSk(transportSk)

	return &crypto.KeyManager{
		SigningPk:   pk,
		SigningSk:   sk,
		TransportPk: transportPk,
		TransportSk: transportSk,
	}, nil
}

func userCredsSlot(vaultName model.VaultName, deviceId model.DeviceId) model.ArtifactId {
	return model.GenesisId(model.UserCredsFqdn(vaultName, deviceId))
}

// GetOrGenerateUserCreds loads (or creates) the UserCreds binding device
// to vaultName. Unlike device creds, a device may hold several of these,
// one per vault.
func (p *PersistentCredentials) GetOrGenerateUserCreds(ctx context.Context, device *DeviceCreds, vaultName model.VaultName) (*UserCreds, error) {
	slot := userCredsSlot(vaultName, device.KeyManager.DeviceId())
	payload, ok, err := p.Repo.FindOne(ctx, slot)
	if err != nil {
		return nil, fmt.Errorf("load user creds: %w", err)
	}
	if ok {
		var wire struct {
			VaultName model.VaultName `json:"vaultName"`
		}
		if err := json.Unmarshal(payload, &wire); err != nil {
			return nil, fmt.Errorf("decode user creds: %w", err)
		}
		return &UserCreds{VaultName: wire.VaultName, Device: *device}, nil
	}

	uc := &UserCreds{VaultName: vaultName, Device: *device}
	encoded, err := json.Marshal(struct {
		VaultName model.VaultName `json:"vaultName"`
	}{VaultName: vaultName})
	if err != nil {
		return nil, fmt.Errorf("encode user creds: %w", err)
	}
	if err := p.Repo.Save(ctx, slot, encoded); err != nil {
		return nil, fmt.Errorf("persist user creds: %w", err)
	}
	return uc, nil
}
