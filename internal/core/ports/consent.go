package ports

import (
	"context"
	"time"

	"settlement-gateway/internal/core/domain"
)

//go:generate mockgen -source=consent.go -destination=mocks/mock_consent.go -package=mocks

// ConsentClaims is the verified content of a consent token.
type ConsentClaims struct {
	Signer     domain.Address
	Nonce      string
	Method     string
	Path       string
	BodyDigest string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// ConsentRequest is the call a consent token is checked against.
type ConsentRequest struct {
	Method string
	Path   string
	Body   []byte
}

// ConsentVerifier validates consent tokens.
type ConsentVerifier interface {
	Verify(token string, req ConsentRequest) (*ConsentClaims, error)
}

// Authorizer fails unless the current call carries consent from addr.
type Authorizer interface {
	RequireConsent(ctx context.Context, addr domain.Address) error
}

type signerKey struct{}

// ContextWithSigner returns a context carrying the proven signer of the call.
func ContextWithSigner(ctx context.Context, signer domain.Address) context.Context {
	return context.WithValue(ctx, signerKey{}, signer)
}

// SignerFromContext returns the signer placed by ContextWithSigner.
func SignerFromContext(ctx context.Context) (domain.Address, bool) {
	s, ok := ctx.Value(signerKey{}).(domain.Address)
	return s, ok && s != ""
}
