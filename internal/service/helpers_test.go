package service

import (
	"context"
	"crypto/ed25519"
	"testing"

	"settlement-gateway/internal/core/domain"
	"settlement-gateway/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestLogger() zerolog.Logger {
	return zerolog.Nop()
}

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

type keyPair struct {
	addr domain.Address
	priv ed25519.PrivateKey
}

func newKeyPair(t *testing.T) keyPair {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return keyPair{addr: domain.AddressFromPublicKey(pub), priv: priv}
}

func newAddr(t *testing.T) domain.Address {
	return newKeyPair(t).addr
}

// signedBy returns a context carrying consent from addr.
func signedBy(addr domain.Address) context.Context {
	return ports.ContextWithSigner(context.Background(), addr)
}
