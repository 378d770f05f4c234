package secretshare

import (
	"fmt"

	"github.com/meta-secret/meta-secret-go/internal/crypto"
	"github.com/meta-secret/meta-secret-go/internal/model"
)

// Split breaks secretBytes into cfg.Parts shares under name, returning
// the MetaPasswordId that identifies this split and the raw shares in
// the same order as recipients should be assigned them.
func Split(name string, secretBytes []byte, cfg Config) (model.MetaPasswordId, [][]byte, error) {
	id, err := model.NewMetaPasswordId(name)
	if err != nil {
		return model.MetaPasswordId{}, nil, fmt.Errorf("generate meta password id: %w", err)
	}
	shares, err := crypto.ShamirSplit(secretBytes, cfg.Parts, cfg.Threshold)
	if err != nil {
		return model.MetaPasswordId{}, nil, fmt.Errorf("split secret: %w", err)
	}
	return id, shares, nil
}

// Combine reconstructs the original secret from at least the split's
// Config.Threshold shares.
func Combine(shares [][]byte) ([]byte, error) {
	secret, err := crypto.ShamirCombine(shares)
	if err != nil {
		return nil, fmt.Errorf("combine shares: %w", err)
	}
	return secret, nil
}
