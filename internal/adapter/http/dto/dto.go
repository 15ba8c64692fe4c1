package dto

import "settlement-gateway/internal/core/domain"

// InitializeRequest is the body of POST /api/v1/admin/initialize.
type InitializeRequest struct {
	Owner         string  `json:"owner" binding:"required" sanitize:"trim"`
	DefaultFeeBps *uint32 `json:"default_fee_bps" binding:"required"`
}

// RegisterBusinessRequest is the body of POST /api/v1/businesses.
type RegisterBusinessRequest struct {
	Name         string  `json:"name" binding:"required" sanitize:"trim"`
	Owner        string  `json:"owner" binding:"required" sanitize:"trim"`
	FeeRecipient string  `json:"fee_recipient" binding:"required" sanitize:"trim"`
	FeeBps       *uint32 `json:"fee_bps" binding:"required"`
	MinAmount    int64   `json:"min_amount" binding:"min=0"`
	MaxAmount    int64   `json:"max_amount" binding:"min=0"`
}

// UpdateBusinessStatusRequest is the body of PUT /api/v1/businesses/:name/status.
type UpdateBusinessStatusRequest struct {
	IsActive *bool  `json:"is_active" binding:"required"`
	Caller   string `json:"caller" binding:"required" sanitize:"trim"`
}

// UpdateBusinessFeeRequest is the body of PUT /api/v1/businesses/:name/fee.
type UpdateBusinessFeeRequest struct {
	FeeBps *uint32 `json:"fee_bps" binding:"required"`
	Caller string  `json:"caller" binding:"required" sanitize:"trim"`
}

// CreatePaymentRequest is the body of POST /api/v1/payments.
type CreatePaymentRequest struct {
	Amount              int64    `json:"amount"`
	BusinessName        string   `json:"business_name" sanitize:"trim"`
	Description         string   `json:"description"`
	Denomination        string   `json:"denomination" sanitize:"trim"`
	AuthorizedAddresses []string `json:"authorized_addresses" sanitize:"trim"`
	Requester           string   `json:"requester" binding:"required" sanitize:"trim"`
	CustomFeeBps        *uint32  `json:"custom_fee_bps,omitempty"`
}

// ExecutePaymentRequest is the body of POST /api/v1/payments/:id/execute.
type ExecutePaymentRequest struct {
	Payer string `json:"payer" binding:"required" sanitize:"trim"`
	Asset string `json:"asset,omitempty" sanitize:"trim"`
}

// CancelPaymentRequest is the body of POST /api/v1/payments/:id/cancel.
type CancelPaymentRequest struct {
	Caller string `json:"caller" binding:"required" sanitize:"trim"`
}

// ListPaymentsQuery holds the query string of GET /api/v1/payments.
type ListPaymentsQuery struct {
	Requester string `form:"requester" binding:"omitempty,address"`
	Business  string `form:"business" sanitize:"trim"`
	Status    string `form:"status" binding:"omitempty,oneof=PENDING AUTHORIZED COMPLETED FAILED CANCELLED"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// PaymentCounterResponse is the body of GET /api/v1/payments/counter.
type PaymentCounterResponse struct {
	Counter uint64 `json:"counter"`
}

// PaymentListResponse wraps a paginated payment request list.
type PaymentListResponse struct {
	Items      []domain.PaymentRequest `json:"items"`
	Total      int64                   `json:"total"`
	Page       int                     `json:"page"`
	PageSize   int                     `json:"page_size"`
	TotalPages int                     `json:"total_pages"`
}
