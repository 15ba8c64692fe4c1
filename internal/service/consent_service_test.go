package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"settlement-gateway/internal/core/domain"
	"settlement-gateway/internal/core/ports"
	"settlement-gateway/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConsentService(now time.Time) *ConsentTokenService {
	s := NewConsentTokenService(5*time.Minute, 30*time.Second)
	s.now = func() time.Time { return now }
	return s
}

func TestConsentTokenService_IssueAndVerify(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	svc := newConsentService(now)
	kp := newKeyPair(t)
	req := ports.ConsentRequest{Method: "post", Path: "/api/v1/payments/1/execute", Body: []byte(`{"asset":"USDC"}`)}

	token, exp, err := svc.Issue(kp.priv, req)
	require.NoError(t, err)
	assert.Equal(t, now.Add(5*time.Minute), exp)

	claims, err := svc.Verify(token, ports.ConsentRequest{Method: "POST", Path: req.Path, Body: req.Body})
	require.NoError(t, err)
	assert.Equal(t, kp.addr, claims.Signer)
	assert.NotEmpty(t, claims.Nonce)
	assert.Equal(t, "POST", claims.Method)
	assert.Equal(t, BodyDigest(req.Body), claims.BodyDigest)
	assert.Equal(t, exp.Unix(), claims.ExpiresAt.Unix())
}

func TestConsentTokenService_NoncesAreUnique(t *testing.T) {
	svc := newConsentService(time.Now())
	kp := newKeyPair(t)
	req := ports.ConsentRequest{Method: "POST", Path: "/x"}

	t1, _, err := svc.Issue(kp.priv, req)
	require.NoError(t, err)
	t2, _, err := svc.Issue(kp.priv, req)
	require.NoError(t, err)

	c1, err := svc.Verify(t1, req)
	require.NoError(t, err)
	c2, err := svc.Verify(t2, req)
	require.NoError(t, err)
	assert.NotEqual(t, c1.Nonce, c2.Nonce)
}

func TestConsentTokenService_VerifyNormalizesIssuer(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	svc := newConsentService(now)
	kp := newKeyPair(t)
	req := ports.ConsentRequest{Method: "POST", Path: "/api/v1/payments", Body: []byte(`{}`)}

	upper := jwt.NewWithClaims(jwt.SigningMethodEdDSA, consentClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    " " + strings.ToUpper(kp.addr.String()),
			ID:        "n-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
		Method:     "POST",
		Path:       req.Path,
		BodyDigest: BodyDigest(req.Body),
	})
	signed, err := upper.SignedString(kp.priv)
	require.NoError(t, err)

	claims, err := svc.Verify(signed, req)
	require.NoError(t, err)
	assert.Equal(t, kp.addr, claims.Signer)
	assert.True(t, claims.Signer.Valid())

	ctx := ports.ContextWithSigner(context.Background(), claims.Signer)
	assert.NoError(t, NewConsentAuthorizer().RequireConsent(ctx, kp.addr))
}

func TestConsentTokenService_VerifyRejects(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	svc := newConsentService(now)
	kp := newKeyPair(t)
	req := ports.ConsentRequest{Method: "POST", Path: "/api/v1/payments", Body: []byte(`{"amount":1}`)}

	token, _, err := svc.Issue(kp.priv, req)
	require.NoError(t, err)

	t.Run("different body", func(t *testing.T) {
		_, err := svc.Verify(token, ports.ConsentRequest{Method: "POST", Path: req.Path, Body: []byte(`{"amount":2}`)})
		assert.ErrorIs(t, err, errConsentMismatch)
	})

	t.Run("different path", func(t *testing.T) {
		_, err := svc.Verify(token, ports.ConsentRequest{Method: "POST", Path: "/api/v1/businesses", Body: req.Body})
		assert.ErrorIs(t, err, errConsentMismatch)
	})

	t.Run("different method", func(t *testing.T) {
		_, err := svc.Verify(token, ports.ConsentRequest{Method: "PUT", Path: req.Path, Body: req.Body})
		assert.ErrorIs(t, err, errConsentMismatch)
	})

	t.Run("expired", func(t *testing.T) {
		later := newConsentService(now.Add(10 * time.Minute))
		_, err := later.Verify(token, req)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("tampered signature", func(t *testing.T) {
		parts := strings.Split(token, ".")
		require.Len(t, parts, 3)
		other := newKeyPair(t)
		forged, _, err := svc.Issue(other.priv, req)
		require.NoError(t, err)
		// Keep the original claims but splice in another key's signature.
		spliced := parts[0] + "." + parts[1] + "." + strings.Split(forged, ".")[2]
		_, err = svc.Verify(spliced, req)
		assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		hs := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Issuer:    kp.addr.String(),
			ID:        "n",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		})
		signed, err := hs.SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = svc.Verify(signed, req)
		assert.Error(t, err)
	})

	t.Run("lifetime above max age", func(t *testing.T) {
		long := jwt.NewWithClaims(jwt.SigningMethodEdDSA, consentClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    kp.addr.String(),
				ID:        "n",
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
			Method:     "POST",
			Path:       req.Path,
			BodyDigest: BodyDigest(req.Body),
		})
		signed, err := long.SignedString(kp.priv)
		require.NoError(t, err)
		_, err = svc.Verify(signed, req)
		assert.ErrorContains(t, err, "lifetime")
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Verify("not-a-token", req)
		assert.Error(t, err)
	})
}

func TestConsentAuthorizer_RequireConsent(t *testing.T) {
	auth := NewConsentAuthorizer()
	a, b := newAddr(t), newAddr(t)

	assert.NoError(t, auth.RequireConsent(signedBy(a), a))
	assert.ErrorIs(t, auth.RequireConsent(signedBy(a), b), apperror.ErrConsentRequired())
	assert.ErrorIs(t, auth.RequireConsent(context.Background(), a), apperror.ErrConsentRequired())
	assert.ErrorIs(t, auth.RequireConsent(signedBy(""), domain.Address("")), apperror.ErrConsentRequired())
}
