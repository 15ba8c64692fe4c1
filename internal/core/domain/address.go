package domain

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrInvalidAddress is returned for anything that is not a hex encoded Ed25519 public key.
var ErrInvalidAddress = errors.New("invalid address")

// AddressLength is the length of an encoded address in hex characters.
const AddressLength = ed25519.PublicKeySize * 2

// Address identifies an account: the lowercase hex encoding of an Ed25519 public key.
type Address string

// ParseAddress normalizes s and validates it as an Address.
func ParseAddress(s string) (Address, error) {
	a := Address(strings.ToLower(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", ErrInvalidAddress
	}
	return a, nil
}

// AddressFromPublicKey encodes pub as an Address.
func AddressFromPublicKey(pub ed25519.PublicKey) Address {
	return Address(hex.EncodeToString(pub))
}

// Valid reports whether a is a well-formed, normalized address.
func (a Address) Valid() bool {
	if len(a) != AddressLength {
		return false
	}
	for i := 0; i < len(a); i++ {
		c := a[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// PublicKey decodes the Ed25519 key behind a.
func (a Address) PublicKey() (ed25519.PublicKey, error) {
	if !a.Valid() {
		return nil, ErrInvalidAddress
	}
	raw, err := hex.DecodeString(string(a))
	if err != nil {
		return nil, ErrInvalidAddress
	}
	return ed25519.PublicKey(raw), nil
}

func (a Address) String() string {
	return string(a)
}

// ParseAddressSet parses raw into a de-duplicated set, keeping first-seen order.
// An empty input or any malformed entry yields ErrInvalidAddress.
func ParseAddressSet(raw []string) ([]Address, error) {
	if len(raw) == 0 {
		return nil, ErrInvalidAddress
	}
	seen := make(map[Address]struct{}, len(raw))
	out := make([]Address, 0, len(raw))
	for _, s := range raw {
		a, err := ParseAddress(s)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out, nil
}
