package crypto

import (
	"fmt"

	"github.com/meta-secret/meta-secret-go/internal/model"
)

// ChannelKind distinguishes a loopback channel (a device sending to
// itself, e.g. re-encrypting a share it already holds) from a genuine
// peer-to-peer channel between two distinct devices.
type ChannelKind string

const (
	ChannelEnd2End     ChannelKind = "End2End"
	ChannelSingleDevice ChannelKind = "SingleDevice"
)

// CommunicationChannel binds a ciphertext to the pair of transport keys
// that are allowed to decrypt it. Decryption always checks that the
// caller's own key is one of Sender/Receiver before attempting to open
// the box, so a ciphertext can never be opened by a process holding an
// unrelated private key even if it somehow obtains the bytes.
type CommunicationChannel struct {
	Kind     ChannelKind `json:"kind"`
	Sender   TransportPk `json:"sender"`
	Receiver TransportPk `json:"receiver"`
}

func End2End(sender, receiver TransportPk) CommunicationChannel {
	return CommunicationChannel{Kind: ChannelEnd2End, Sender: sender, Receiver: receiver}
}

func SingleDevice(pk TransportPk) CommunicationChannel {
	return CommunicationChannel{Kind: ChannelSingleDevice, Sender: pk, Receiver: pk}
}

func (c CommunicationChannel) Inverse() CommunicationChannel {
	return CommunicationChannel{Kind: c.Kind, Sender: c.Receiver, Receiver: c.Sender}
}

// Peer returns the other party's transport key relative to identity, or
// ErrInvalidRecipient if identity is not part of this channel at all.
func (c CommunicationChannel) Peer(identity TransportPk) (TransportPk, error) {
	switch identity {
	case c.Sender:
		return c.Receiver, nil
	case c.Receiver:
		return c.Sender, nil
	default:
		return TransportPk{}, ErrInvalidRecipient
	}
}

// EncryptedMessage is a ciphertext together with the channel it was
// sealed under. The channel travels with the ciphertext so a recipient
// who holds many keys knows which one to use, and so Open can reject a
// message decrypted with the wrong identity.
type EncryptedMessage struct {
	Channel    CommunicationChannel `json:"channel"`
	Ciphertext model.Base64Text     `json:"ciphertext"`
}

// SealEnvelope encrypts plaintext for delivery over channel, signed by
// senderSk. For a SingleDevice channel the recipient key is the device's
// own transport key (loopback box).
func SealEnvelope(plaintext []byte, channel CommunicationChannel, senderSk TransportSk) (*EncryptedMessage, error) {
	recipientPk := channel.Receiver
	sealed, err := BoxSeal(plaintext, &recipientPk, &senderSk)
	if err != nil {
		return nil, err
	}
	return &EncryptedMessage{Channel: channel, Ciphertext: model.Base64Text(sealed)}, nil
}

// OpenEnvelope decrypts msg as identity, using identitySk. It fails
// closed if identity is not a member of msg.Channel, even if the bytes
// would otherwise decrypt successfully under some other key.
func OpenEnvelope(msg *EncryptedMessage, identity TransportPk, identitySk TransportSk) ([]byte, error) {
	peerPk, err := msg.Channel.Peer(identity)
	if err != nil {
		return nil, err
	}
	plaintext, err := BoxOpen(msg.Ciphertext, &peerPk, &identitySk)
	if err != nil {
		return nil, fmt.Errorf("open envelope: %w", err)
	}
	return plaintext, nil
}
