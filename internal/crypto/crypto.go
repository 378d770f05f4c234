// Package crypto provides the primitives everything else in this module
// builds on: Ed25519 signing keys, X25519 transport keys used for
// channel-bound AEAD envelopes, at-rest encryption of credentials, device
// id derivation, and Shamir secret splitting. The envelope/channel layer
// on top generalizes a single sender/recipient box into the full
// CommunicationChannel model, so a ciphertext always carries the key
// pair it is bound to rather than being opened blind.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"

	"github.com/meta-secret/meta-secret-go/internal/model"
)

const (
	// Argon2id parameters for deriving a symmetric key from a vault
	// passphrase.
	Argon2Time    = 3
	Argon2Memory  = 64 * 1024 // 64 MB
	Argon2Threads = 4
	Argon2KeyLen  = 32

	SaltSize  = 16
	NonceSize = 24 // XChaCha20-Poly1305 nonce size

	// DeviceIdHashBytes is how much of the transport key's SHA-256 hash
	// becomes a DeviceId. 16 bytes (32 hex chars) is enough to make
	// collisions practically impossible within one vault's membership.
	DeviceIdHashBytes = 16
)

var (
	ErrCryptoFailure    = errors.New("crypto: operation failed")
	ErrInvalidRecipient = errors.New("crypto: identity is not a member of this channel")
)

func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("%w: generate salt: %v", ErrCryptoFailure, err)
	}
	return salt, nil
}

// DeriveKey stretches a passphrase into a symmetric key via Argon2id.
func DeriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, Argon2Time, Argon2Memory, Argon2Threads, Argon2KeyLen)
}

// Encrypt/Decrypt are at-rest XChaCha20-Poly1305 encryption under a
// 32-byte key, used to seal device credentials under the node's master
// key.
func Encrypt(key, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("%w: init aead: %v", ErrCryptoFailure, err)
	}
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("%w: nonce: %v", ErrCryptoFailure, err)
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func Decrypt(key, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < NonceSize {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrCryptoFailure)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("%w: init aead: %v", ErrCryptoFailure, err)
	}
	nonce, sealed := ciphertext[:NonceSize], ciphertext[NonceSize:]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", ErrCryptoFailure, err)
	}
	return plaintext, nil
}

// TransportPk/TransportSk are X25519 keys used for nacl/box envelopes.
type TransportPk [32]byte
type TransportSk [32]byte

func GenerateBoxKeyPair() (*TransportPk, *TransportSk, error) {
	pk, sk, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: generate box keypair: %v", ErrCryptoFailure, err)
	}
	return (*TransportPk)(pk), (*TransportSk)(sk), nil
}

// TransportPkFromSk recovers the public key matching a transport secret
// key, used when reloading a KeyManager from a secret key alone.
func TransportPkFromSk(sk TransportSk) TransportPk {
	var pk TransportPk
	curve25519.ScalarBaseMult((*[32]byte)(&pk), (*[32]byte)(&sk))
	return pk
}

func BoxSeal(plaintext []byte, recipientPk *TransportPk, senderSk *TransportSk) ([]byte, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("%w: nonce: %v", ErrCryptoFailure, err)
	}
	return box.Seal(nonce[:], plaintext, &nonce, (*[32]byte)(recipientPk), (*[32]byte)(senderSk)), nil
}

func BoxOpen(sealed []byte, senderPk *TransportPk, recipientSk *TransportSk) ([]byte, error) {
	if len(sealed) < 24 {
		return nil, fmt.Errorf("%w: sealed message too short", ErrCryptoFailure)
	}
	var nonce [24]byte
	copy(nonce[:], sealed[:24])
	plaintext, ok := box.Open(nil, sealed[24:], &nonce, (*[32]byte)(senderPk), (*[32]byte)(recipientSk))
	if !ok {
		return nil, fmt.Errorf("%w: box open failed authentication", ErrCryptoFailure)
	}
	return plaintext, nil
}

// KeyManager bundles the two keypairs a device needs: an Ed25519 identity
// key for signing log events, and an X25519 transport key for sealed
// envelopes.
type KeyManager struct {
	SigningPk   ed25519.PublicKey
	SigningSk   ed25519.PrivateKey
	TransportPk TransportPk
	TransportSk TransportSk
}

func GenerateKeyManager() (*KeyManager, error) {
	signPk, signSk, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: generate signing keypair: %v", ErrCryptoFailure, err)
	}
	transportPk, transportSk, err := GenerateBoxKeyPair()
	if err != nil {
		return nil, err
	}
	return &KeyManager{
		SigningPk:   signPk,
		SigningSk:   signSk,
		TransportPk: *transportPk,
		TransportSk: *transportSk,
	}, nil
}

func (km *KeyManager) Sign(msg []byte) []byte {
	return ed25519.Sign(km.SigningSk, msg)
}

func Verify(pk ed25519.PublicKey, msg, sig []byte) bool {
	if len(pk) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(pk, msg, sig)
}

func (km *KeyManager) DeviceKeys() model.DeviceKeys {
	return model.DeviceKeys{
		TransportPk: model.Base64Text(km.TransportPk[:]),
		SigningPk:   model.Base64Text(km.SigningPk),
	}
}

// ComputeDeviceId derives a DeviceId from a transport public key by
// truncating its SHA-256 hash and hex-encoding it.
func ComputeDeviceId(transportPk TransportPk) model.DeviceId {
	h := sha256.Sum256(transportPk[:])
	return model.DeviceId(hex.EncodeToString(h[:DeviceIdHashBytes]))
}

func (km *KeyManager) DeviceId() model.DeviceId {
	return ComputeDeviceId(km.TransportPk)
}
