package model

import "fmt"

// ArtifactId is a position within a single Fqdn's chain: Curr is this
// event's sequence number, Prev is the sequence number it was appended
// after. Unit (0,0) and Genesis (1,0) are fixed sentinels every chain
// starts with; Append only ever succeeds at the position one past the
// current tail, which is what gives the log its single-writer CAS
// semantics at the repo layer.
type ArtifactId struct {
	Fqdn Fqdn   `json:"fqdn"`
	Curr uint64 `json:"curr"`
	Prev uint64 `json:"prev"`
}

func UnitId(fqdn Fqdn) ArtifactId {
	return ArtifactId{Fqdn: fqdn, Curr: 0, Prev: 0}
}

func GenesisId(fqdn Fqdn) ArtifactId {
	return ArtifactId{Fqdn: fqdn, Curr: 1, Prev: 0}
}

func (id ArtifactId) IsUnit() bool {
	return id.Curr == 0 && id.Prev == 0
}

func (id ArtifactId) IsGenesis() bool {
	return id.Curr == 1 && id.Prev == 0
}

// Next returns the position immediately following id in the same chain.
func (id ArtifactId) Next() ArtifactId {
	return ArtifactId{Fqdn: id.Fqdn, Curr: id.Curr + 1, Prev: id.Curr}
}

// Key renders a stable string identity for use as a map/repo key. It is
// not part of the wire format, but the bolt and sqlite backends persist
// it as the on-disk key, so its layout must stay stable.
func (id ArtifactId) Key() string {
	return fmt.Sprintf("%s:%s:%d:%d", id.Fqdn.ObjType, id.Fqdn.ObjInstance, id.Curr, id.Prev)
}

func (id ArtifactId) String() string {
	return id.Key()
}
