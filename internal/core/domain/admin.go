package domain

import "time"

// MaxFeeBps is 100% expressed in basis points.
const MaxFeeBps uint32 = 10000

// AdminState is the singleton contract administration record.
type AdminState struct {
	Owner         Address   `json:"owner"`
	DefaultFeeBps uint32    `json:"default_fee_bps"`
	InitializedAt time.Time `json:"initialized_at"`
}

// IsOwnerOr reports whether caller is other or the contract owner.
func (s *AdminState) IsOwnerOr(caller, other Address) bool {
	return caller == other || caller == s.Owner
}

// ValidFeeBps reports whether bps lies in [0, MaxFeeBps].
func ValidFeeBps(bps uint32) bool {
	return bps <= MaxFeeBps
}
