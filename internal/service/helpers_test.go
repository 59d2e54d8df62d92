package service

import (
	"context"
	"sync"
	"testing"

	"tag-wallet/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestLogger() zerolog.Logger {
	return zerolog.Nop()
}

// staticKey is a ports.KeyProvider over a fixed secret.
type staticKey []byte

func (k staticKey) MasterKey() ([]byte, error) { return []byte(k), nil }

var testMasterKey = staticKey("0123456789abcdef0123456789abcdef")

func newTestGuard(t *testing.T) *IntegrityGuard {
	t.Helper()
	g, err := NewIntegrityGuard(testMasterKey)
	require.NoError(t, err)
	return g
}

// sealCustomer encodes c and seals it so that it carries generation gen.
func sealCustomer(t *testing.T, g *IntegrityGuard, c *domain.Customer, gen uint32) []byte {
	t.Helper()
	rec, err := NewLedgerCodec().Encode(c)
	require.NoError(t, err)
	env, err := g.Seal(rec, gen-1)
	require.NoError(t, err)
	return env
}

// openCustomer verifies and decodes a tag image.
func openCustomer(t *testing.T, g *IntegrityGuard, env []byte) (*domain.Customer, uint32) {
	t.Helper()
	rec, gen, err := g.Open(env, nil)
	require.NoError(t, err)
	c, err := NewLedgerCodec().Decode(rec)
	require.NoError(t, err)
	return c, gen
}

// recordingNotifier is a ports.SessionNotifier that keeps what it receives.
type recordingNotifier struct {
	mu       sync.Mutex
	accepted []*domain.Outcome
	rejected []*domain.Rejection
}

func (n *recordingNotifier) OnTagAccepted(_ context.Context, o *domain.Outcome) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.accepted = append(n.accepted, o)
}

func (n *recordingNotifier) OnTagRejected(_ context.Context, r *domain.Rejection) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rejected = append(n.rejected, r)
}

func (n *recordingNotifier) counts() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.accepted), len(n.rejected)
}

var (
	holderID   = []byte("holder-0001")
	supervisor = &domain.Authorization{Role: domain.RoleSupervisor}
	cashier    = &domain.Authorization{Role: domain.RoleCashier}
)
