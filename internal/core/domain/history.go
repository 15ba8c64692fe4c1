package domain

import "math"

// PaymentHistory aggregates the settlements made by one payer.
type PaymentHistory struct {
	Payer         Address `json:"payer"`
	TotalPayments uint64  `json:"total_payments"`
	TotalAmount   int64   `json:"total_amount"`
	LastPaymentID uint64  `json:"last_payment_id"`
}

// Record folds one settlement into the aggregate. TotalAmount saturates at
// math.MaxInt64 instead of wrapping.
func (h *PaymentHistory) Record(paymentID uint64, amount int64) {
	h.TotalPayments++
	h.TotalAmount = SaturatingAdd(h.TotalAmount, amount)
	h.LastPaymentID = paymentID
}

// SaturatingAdd returns a+b for non-negative operands, clamped to math.MaxInt64.
func SaturatingAdd(a, b int64) int64 {
	if b > math.MaxInt64-a {
		return math.MaxInt64
	}
	return a + b
}
