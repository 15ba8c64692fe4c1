package domain

import "time"

// PaymentStatus represents the lifecycle state of a payment request.
type PaymentStatus string

// Authorized and Failed are declared for compatibility but no operation
// currently transitions into them.
const (
	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusAuthorized PaymentStatus = "AUTHORIZED"
	PaymentStatusCompleted  PaymentStatus = "COMPLETED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusCancelled  PaymentStatus = "CANCELLED"
)

// Valid reports whether s is a declared status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusAuthorized, PaymentStatusCompleted,
		PaymentStatusFailed, PaymentStatusCancelled:
		return true
	}
	return false
}

// PaymentRequest is a request for payment that any one of AuthorizedAddresses may settle.
type PaymentRequest struct {
	ID                  uint64        `json:"id"`
	Amount              int64         `json:"amount"` // In smallest unit
	BusinessName        string        `json:"business_name"`
	Description         string        `json:"description"`
	Denomination        string        `json:"denomination"`
	AuthorizedAddresses []Address     `json:"authorized_addresses"`
	Requester           Address       `json:"requester"`
	FeeBps              uint32        `json:"fee_bps"`
	Status              PaymentStatus `json:"status"`
	CreatedAt           time.Time     `json:"created_at"`
	Settlement          *Settlement   `json:"settlement,omitempty"`
	CancelledAt         *time.Time    `json:"cancelled_at,omitempty"`
}

// Settlement records how a completed request was paid.
type Settlement struct {
	Payer     Address   `json:"payer"`
	Asset     string    `json:"asset"`
	FeeAmount int64     `json:"fee_amount"`
	NetAmount int64     `json:"net_amount"`
	SettledAt time.Time `json:"settled_at"`
}

// IsAuthorized reports whether addr belongs to the authorization set.
func (p *PaymentRequest) IsAuthorized(addr Address) bool {
	for _, a := range p.AuthorizedAddresses {
		if a == addr {
			return true
		}
	}
	return false
}

// IsTerminal returns true once the request can no longer change state.
func (p *PaymentRequest) IsTerminal() bool {
	return p.Status == PaymentStatusCompleted ||
		p.Status == PaymentStatusCancelled ||
		p.Status == PaymentStatusFailed
}

// PaymentFilter narrows a payment request listing. Zero values match everything.
type PaymentFilter struct {
	Requester    Address
	BusinessName string
	Status       PaymentStatus
	Limit        int
	Offset       int
}

// Match reports whether p satisfies every set field of f.
func (f PaymentFilter) Match(p *PaymentRequest) bool {
	if f.Requester != "" && p.Requester != f.Requester {
		return false
	}
	if f.BusinessName != "" && p.BusinessName != f.BusinessName {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	return true
}
