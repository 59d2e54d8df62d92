package service

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"tag-wallet/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(t *testing.T) []byte {
	t.Helper()
	rec, err := NewLedgerCodec().Encode(&domain.Customer{
		ID:      holderID,
		Balance: 500,
		Items:   []domain.LineItem{{ProductID: 1, Quantity: 2, UnitPrice: 150}},
	})
	require.NoError(t, err)
	return rec
}

func TestIntegrityGuard_SealOpen(t *testing.T) {
	g := newTestGuard(t)
	rec := testRecord(t)

	env, err := g.Seal(rec, 0)
	require.NoError(t, err)
	assert.Len(t, env, HeaderSize+len(rec)-1)
	assert.Equal(t, FormatVersion, env[0])
	assert.Equal(t, uint32(1), binary.BigEndian.Uint32(env[1:5]))

	got, gen, err := g.Open(env, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), gen)
	assert.Equal(t, rec, got)

	got[1] ^= 0xFF
	_, _, err = g.Open(env, nil)
	assert.NoError(t, err, "returned record must not alias the envelope")
}

func TestIntegrityGuard_EveryBitFlipIsRejected(t *testing.T) {
	g := newTestGuard(t)
	env, err := g.Seal(testRecord(t), 41)
	require.NoError(t, err)

	for i := 0; i < len(env)*8; i++ {
		tampered := append([]byte(nil), env...)
		tampered[i/8] ^= 1 << (i % 8)

		rec, _, err := g.Open(tampered, nil)
		require.Error(t, err, "bit %d", i)
		assert.Nil(t, rec)
		if i >= 8 {
			assert.ErrorIs(t, err, domain.ErrAuthenticationFailed, "bit %d", i)
		} else {
			assert.ErrorIs(t, err, domain.ErrUnsupportedVersion, "bit %d", i)
		}
	}
}

func TestIntegrityGuard_WrongKey(t *testing.T) {
	env, err := newTestGuard(t).Seal(testRecord(t), 0)
	require.NoError(t, err)

	other, err := NewIntegrityGuard(staticKey("fedcba9876543210fedcba9876543210"))
	require.NoError(t, err)

	_, _, err = other.Open(env, nil)
	assert.ErrorIs(t, err, domain.ErrAuthenticationFailed)
}

func TestIntegrityGuard_Truncated(t *testing.T) {
	g := newTestGuard(t)
	env, err := g.Seal(testRecord(t), 0)
	require.NoError(t, err)

	for _, n := range []int{0, 1, 5, HeaderSize - 1, HeaderSize, len(env) - 1} {
		_, _, err := g.Open(env[:n], nil)
		assert.ErrorIs(t, err, domain.ErrAuthenticationFailed, "length %d", n)
	}
}

func TestIntegrityGuard_Freshness(t *testing.T) {
	g := newTestGuard(t)
	env, err := g.Seal(testRecord(t), 2) // generation 3
	require.NoError(t, err)

	floor := func(v uint32) *uint32 { return &v }

	_, gen, err := g.Open(env, floor(2))
	require.NoError(t, err)
	assert.Equal(t, uint32(3), gen)

	_, _, err = g.Open(env, floor(3))
	assert.ErrorIs(t, err, domain.ErrStaleGeneration)

	_, _, err = g.Open(env, floor(7))
	assert.ErrorIs(t, err, domain.ErrStaleGeneration)

	assert.NoError(t, g.CheckGeneration(3, nil))
	assert.ErrorIs(t, g.CheckGeneration(1, floor(1)), domain.ErrStaleGeneration)
}

func TestIntegrityGuard_GenerationZeroIsNeverValid(t *testing.T) {
	g := newTestGuard(t)
	rec := testRecord(t)

	// A correctly tagged envelope that claims generation 0.
	env := make([]byte, HeaderSize+len(rec)-1)
	env[0] = rec[0]
	copy(env[HeaderSize:], rec[1:])
	copy(env[5:HeaderSize], g.mac(env[0], env[1:5], env[HeaderSize:]))

	_, _, err := g.Open(env, nil)
	assert.ErrorIs(t, err, domain.ErrAuthenticationFailed)
}

func TestIntegrityGuard_GenerationExhausted(t *testing.T) {
	g := newTestGuard(t)
	rec := testRecord(t)

	env, err := g.Seal(rec, math.MaxUint32-1)
	require.NoError(t, err)
	_, gen, err := g.Open(env, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(math.MaxUint32), gen)

	_, err = g.Seal(rec, math.MaxUint32)
	assert.ErrorIs(t, err, domain.ErrGenerationExhausted)
}

func TestIntegrityGuard_UnsupportedVersion(t *testing.T) {
	g := newTestGuard(t)
	env, err := g.Seal(testRecord(t), 0)
	require.NoError(t, err)
	env[0] = 0xFF

	_, _, err = g.Open(env, nil)
	assert.ErrorIs(t, err, domain.ErrUnsupportedVersion)

	_, _, err = g.Open([]byte{0xFF}, nil)
	assert.ErrorIs(t, err, domain.ErrUnsupportedVersion)
}

func TestIntegrityGuard_SealEmptyRecord(t *testing.T) {
	_, err := newTestGuard(t).Seal(nil, 0)
	assert.ErrorIs(t, err, domain.ErrMalformedRecord)
}

type failingKeys struct{}

func (failingKeys) MasterKey() ([]byte, error) { return nil, errors.New("secure element locked") }

func TestNewIntegrityGuard_KeyErrors(t *testing.T) {
	_, err := NewIntegrityGuard(failingKeys{})
	assert.ErrorContains(t, err, "secure element locked")

	_, err = NewIntegrityGuard(staticKey("short"))
	assert.ErrorContains(t, err, "at least 16 bytes")
}
