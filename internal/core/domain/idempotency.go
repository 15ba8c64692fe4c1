package domain

import "time"

// IdempotencyRecord maps a client supplied key to the payment request it created.
type IdempotencyRecord struct {
	Key       string    `json:"key"` // Format: "requester:client_key"
	PaymentID uint64    `json:"payment_id"`
	CreatedAt time.Time `json:"created_at"`
}

// BuildIdempotencyKey scopes a client key to the requester.
func BuildIdempotencyKey(requester Address, clientKey string) string {
	return string(requester) + ":" + clientKey
}
