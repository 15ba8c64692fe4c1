package service

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"settlement-gateway/internal/core/domain"
	"settlement-gateway/internal/core/ports"
	"settlement-gateway/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

var errConsentMismatch = errors.New("consent token does not match request")

// consentClaims binds a token to a single HTTP call.
type consentClaims struct {
	jwt.RegisteredClaims
	Method     string `json:"htm"`
	Path       string `json:"htu"`
	BodyDigest string `json:"bdh"`
}

// ConsentTokenService issues and verifies EdDSA consent tokens. The issuer of a
// token is the signing address itself, so no key registry is involved.
type ConsentTokenService struct {
	maxAge    time.Duration
	clockSkew time.Duration
	now       func() time.Time
}

// NewConsentTokenService creates a consent token service.
func NewConsentTokenService(maxAge, clockSkew time.Duration) *ConsentTokenService {
	return &ConsentTokenService{
		maxAge:    maxAge,
		clockSkew: clockSkew,
		now:       time.Now,
	}
}

// BodyDigest returns the hex BLAKE2b-256 digest carried in the bdh claim.
func BodyDigest(body []byte) string {
	sum := blake2b.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Issue signs a token authorizing req on behalf of the key's address.
func (s *ConsentTokenService) Issue(key ed25519.PrivateKey, req ports.ConsentRequest) (string, time.Time, error) {
	pub, ok := key.Public().(ed25519.PublicKey)
	if !ok {
		return "", time.Time{}, fmt.Errorf("unexpected public key type %T", key.Public())
	}

	now := s.now()
	expiresAt := now.Add(s.maxAge)

	claims := consentClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    domain.AddressFromPublicKey(pub).String(),
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Method:     strings.ToUpper(req.Method),
		Path:       req.Path,
		BodyDigest: BodyDigest(req.Body),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	tokenString, err := token.SignedString(key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing consent token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// Verify parses tokenString, checks its signature against the issuer address,
// and checks that it was made for req.
func (s *ConsentTokenService) Verify(tokenString string, req ports.ConsentRequest) (*ports.ConsentClaims, error) {
	claims := &consentClaims{}
	var signer domain.Address
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		c, ok := token.Claims.(*consentClaims)
		if !ok {
			return nil, fmt.Errorf("unexpected claims type %T", token.Claims)
		}
		var err error
		if signer, err = domain.ParseAddress(c.Issuer); err != nil {
			return nil, fmt.Errorf("issuer: %w", err)
		}
		return signer.PublicKey()
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithLeeway(s.clockSkew),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parsing consent token: %w", err)
	}

	if claims.IssuedAt == nil {
		return nil, fmt.Errorf("missing iat claim")
	}
	if claims.ExpiresAt.Sub(claims.IssuedAt.Time) > s.maxAge {
		return nil, fmt.Errorf("consent token lifetime exceeds %s", s.maxAge)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("missing jti claim")
	}
	if !strings.EqualFold(claims.Method, req.Method) || claims.Path != req.Path {
		return nil, fmt.Errorf("%w: %s %s", errConsentMismatch, claims.Method, claims.Path)
	}
	if claims.BodyDigest != BodyDigest(req.Body) {
		return nil, fmt.Errorf("%w: body digest", errConsentMismatch)
	}

	return &ports.ConsentClaims{
		Signer:     signer,
		Nonce:      claims.ID,
		Method:     strings.ToUpper(claims.Method),
		Path:       claims.Path,
		BodyDigest: claims.BodyDigest,
		IssuedAt:   claims.IssuedAt.Time,
		ExpiresAt:  claims.ExpiresAt.Time,
	}, nil
}

// ConsentAuthorizer implements ports.Authorizer over the signer that the
// consent middleware stored in the request context.
type ConsentAuthorizer struct{}

// NewConsentAuthorizer creates a consent authorizer.
func NewConsentAuthorizer() *ConsentAuthorizer {
	return &ConsentAuthorizer{}
}

// RequireConsent fails unless addr signed the current call.
func (ConsentAuthorizer) RequireConsent(ctx context.Context, addr domain.Address) error {
	signer, ok := ports.SignerFromContext(ctx)
	if !ok || signer != addr {
		return apperror.ErrConsentRequired()
	}
	return nil
}
