package domain

import (
	"strings"
	"time"
)

// Business is the configuration a merchant registers under a unique name.
// A zero MinAmount or MaxAmount leaves that side of the amount range open.
type Business struct {
	Name          string    `json:"name"`
	Owner         Address   `json:"owner"`
	FeeRecipient  Address   `json:"fee_recipient"`
	DefaultFeeBps uint32    `json:"default_fee_bps"`
	MinAmount     int64     `json:"min_amount,omitempty"`
	MaxAmount     int64     `json:"max_amount,omitempty"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NormalizeBusinessName is the canonical form under which names are stored and looked up.
func NormalizeBusinessName(name string) string {
	return strings.TrimSpace(name)
}

// ResolveFee returns custom when given, otherwise the business default.
func (b *Business) ResolveFee(custom *uint32) uint32 {
	if custom != nil {
		return *custom
	}
	return b.DefaultFeeBps
}

// ValidAmountBounds reports whether min and max describe a usable range.
func ValidAmountBounds(min, max int64) bool {
	if min < 0 || max < 0 {
		return false
	}
	return max == 0 || min <= max
}

// AmountInRange reports whether amount satisfies the configured bounds.
func (b *Business) AmountInRange(amount int64) bool {
	if b.MinAmount > 0 && amount < b.MinAmount {
		return false
	}
	return b.MaxAmount == 0 || amount <= b.MaxAmount
}
