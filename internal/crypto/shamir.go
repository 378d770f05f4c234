package crypto

import (
	"encoding/binary"
	"fmt"

	"github.com/hashicorp/vault/shamir"
)

// ShamirBlockSize is the fixed block a secret is padded to before
// splitting. The first 2 bytes of the block hold the secret's length, so
// secrets longer than ShamirBlockSize-2 bytes cannot be split by this
// implementation; in practice passwords and passphrases comfortably fit.
const ShamirBlockSize = 64

func padToBlock(secret []byte) ([]byte, error) {
	if len(secret) > ShamirBlockSize-2 {
		return nil, fmt.Errorf("%w: secret exceeds %d byte block limit", ErrCryptoFailure, ShamirBlockSize-2)
	}
	block := make([]byte, ShamirBlockSize)
	binary.BigEndian.PutUint16(block[:2], uint16(len(secret)))
	copy(block[2:], secret)
	return block, nil
}

func unpadBlock(block []byte) ([]byte, error) {
	if len(block) != ShamirBlockSize {
		return nil, fmt.Errorf("%w: corrupt shamir block size %d", ErrCryptoFailure, len(block))
	}
	n := binary.BigEndian.Uint16(block[:2])
	if int(n) > ShamirBlockSize-2 {
		return nil, fmt.Errorf("%w: corrupt shamir block length %d", ErrCryptoFailure, n)
	}
	out := make([]byte, n)
	copy(out, block[2:2+n])
	return out, nil
}

// ShamirSplit splits secret into parts shares, any threshold of which
// reconstruct it exactly via ShamirCombine.
func ShamirSplit(secret []byte, parts, threshold int) ([][]byte, error) {
	block, err := padToBlock(secret)
	if err != nil {
		return nil, err
	}
	shares, err := shamir.Split(block, parts, threshold)
	if err != nil {
		return nil, fmt.Errorf("%w: shamir split: %v", ErrCryptoFailure, err)
	}
	return shares, nil
}

// ShamirCombine reconstructs the original secret from at least threshold
// shares produced by ShamirSplit.
func ShamirCombine(shares [][]byte) ([]byte, error) {
	block, err := shamir.Combine(shares)
	if err != nil {
		return nil, fmt.Errorf("%w: shamir combine: %v", ErrCryptoFailure, err)
	}
	return unpadBlock(block)
}
