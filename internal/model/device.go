package model

// DeviceId is the truncated-SHA-256 fingerprint of a device's transport
// public key. Derivation lives in internal/crypto since it needs the key
// bytes; this package only knows it as an opaque string.
type DeviceId string

type DeviceKeys struct {
	TransportPk Base64Text `json:"transportPk"`
	SigningPk   Base64Text `json:"signingPk"`
}

type DeviceData struct {
	DeviceId DeviceId   `json:"deviceId"`
	Name     string     `json:"name"`
	Keys     DeviceKeys `json:"keys"`
}

// UserData pairs a device with the vault it is acting on behalf of. A
// single physical device can be UserData for several vaults at once, one
// per vault it has joined.
type UserData struct {
	VaultName VaultName  `json:"vaultName"`
	Device    DeviceData `json:"device"`
}
