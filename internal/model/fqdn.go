// Package model holds the pure data shapes shared by every layer: object
// identity (Fqdn/ArtifactId), device/vault/membership records, and the
// base64 wire encoding for binary fields. Nothing here touches storage,
// crypto, or the network.
package model

import "fmt"

// ObjType names one of the closed set of object kinds that can live in the
// event log. Each kind owns its own append-only chain, keyed by Fqdn.
type ObjType string

const (
	ObjTypeDeviceLog   ObjType = "DeviceLog"
	ObjTypeVaultLog    ObjType = "VaultLog"
	ObjTypeVault       ObjType = "Vault"
	ObjTypeVaultStatus ObjType = "VaultStatus"
	ObjTypeSsDeviceLog ObjType = "SsDeviceLog"
	ObjTypeSsLog       ObjType = "SsLog"
	ObjTypeSsWorkflow  ObjType = "SsWorkflow"
	ObjTypeDeviceCreds ObjType = "DeviceCreds"
	ObjTypeUserCreds   ObjType = "UserCreds"
	ObjTypeGlobalIndex ObjType = "GlobalIndex"
)

// Fqdn identifies a single chain within an ObjType's namespace: the vault
// name, device id, or claim id that the chain belongs to.
type Fqdn struct {
	ObjType     ObjType `json:"objType"`
	ObjInstance string  `json:"objInstance"`
}

func (f Fqdn) String() string {
	return fmt.Sprintf("%s:%s", f.ObjType, f.ObjInstance)
}

func DeviceLogFqdn(vaultName VaultName, deviceId DeviceId) Fqdn {
	return Fqdn{ObjType: ObjTypeDeviceLog, ObjInstance: string(vaultName) + "/" + string(deviceId)}
}

func VaultLogFqdn(vaultName VaultName) Fqdn {
	return Fqdn{ObjType: ObjTypeVaultLog, ObjInstance: string(vaultName)}
}

func VaultFqdn(vaultName VaultName) Fqdn {
	return Fqdn{ObjType: ObjTypeVault, ObjInstance: string(vaultName)}
}

func VaultStatusFqdn(vaultName VaultName, deviceId DeviceId) Fqdn {
	return Fqdn{ObjType: ObjTypeVaultStatus, ObjInstance: string(vaultName) + "/" + string(deviceId)}
}

func SsDeviceLogFqdn(deviceId DeviceId) Fqdn {
	return Fqdn{ObjType: ObjTypeSsDeviceLog, ObjInstance: string(deviceId)}
}

func SsLogFqdn(vaultName VaultName) Fqdn {
	return Fqdn{ObjType: ObjTypeSsLog, ObjInstance: string(vaultName)}
}

func SsWorkflowFqdn(claimId string, receiver DeviceId) Fqdn {
	return Fqdn{ObjType: ObjTypeSsWorkflow, ObjInstance: claimId + "/" + string(receiver)}
}

func DeviceCredsFqdn(deviceId DeviceId) Fqdn {
	return Fqdn{ObjType: ObjTypeDeviceCreds, ObjInstance: string(deviceId)}
}

func UserCredsFqdn(vaultName VaultName, deviceId DeviceId) Fqdn {
	return Fqdn{ObjType: ObjTypeUserCreds, ObjInstance: string(vaultName) + "/" + string(deviceId)}
}

func GlobalIndexFqdn() Fqdn {
	return Fqdn{ObjType: ObjTypeGlobalIndex, ObjInstance: "all_vaults"}
}
