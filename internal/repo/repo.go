// Package repo is the storage boundary: an append-only, byte-exact
// key/value store keyed by model.ArtifactId. Every backend enforces the
// same append-is-CAS rule (Save fails if the id already holds a value),
// which is what gives the object log its single-writer-per-chain
// guarantee regardless of which backend is in use.
package repo

import (
	"context"
	"errors"

	"github.com/meta-secret/meta-secret-go/internal/model"
)

var (
	// ErrAlreadyExists is returned by Save when an event already occupies
	// the given ArtifactId. Callers resolve it by re-reading the tail and
	// retrying at the next free id, or by treating it as the idempotent
	// no-op it usually is (the same append already landed).
	ErrAlreadyExists = errors.New("repo: artifact already exists at this id")
	ErrNotFound      = errors.New("repo: artifact not found")
)

// Repository stores opaque JSON payloads under an ArtifactId. It never
// interprets the payload; all typed encoding/decoding happens above this
// layer (internal/objects, internal/vault, internal/secretshare).
type Repository interface {
	// Save appends payload at id. It returns ErrAlreadyExists if id is
	// already occupied; this is the append-is-CAS guarantee.
	Save(ctx context.Context, id model.ArtifactId, payload []byte) error

	// FindOne returns the payload stored at id, or ok=false if nothing is
	// there yet.
	FindOne(ctx context.Context, id model.ArtifactId) (payload []byte, ok bool, err error)

	// Delete removes the payload at id, used only for the final
	// SsWorkflow cleanup pass once a share has been fully delivered.
	Delete(ctx context.Context, id model.ArtifactId) error

	Close() error
}
