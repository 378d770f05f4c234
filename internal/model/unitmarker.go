package model

// UnitMarker is the payload written at every chain's Unit (0,0) slot: an
// empty placeholder whose only purpose is to let readers cheaply check
// "has this chain been started at all" with a single point lookup,
// instead of having to distinguish "chain absent" from "chain present
// but empty" by some other means. Real content always starts at
// Genesis (1,0).
type UnitMarker struct {
	Fqdn Fqdn `json:"fqdn"`
}
