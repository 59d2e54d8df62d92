package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"tag-wallet/internal/core/domain"
	"tag-wallet/internal/core/ports"

	"golang.org/x/crypto/hkdf"
)

// Envelope layout: version u8 | generation u32 | tag [TagSize] | payload.
// The MAC covers version, generation and payload.
const (
	TagSize        = 16
	generationSize = 4
	HeaderSize     = 1 + generationSize + TagSize

	minMasterKeyLen = 16
	macKeyInfo      = "tag-wallet envelope mac v1"
)

// IntegrityGuard seals codec output into authenticated envelopes and opens
// them again, MAC first, before any field of the payload is looked at.
type IntegrityGuard struct {
	macKey []byte
}

// NewIntegrityGuard derives the envelope MAC key from the provider's master
// secret with HKDF-SHA256.
func NewIntegrityGuard(keys ports.KeyProvider) (*IntegrityGuard, error) {
	master, err := keys.MasterKey()
	if err != nil {
		return nil, fmt.Errorf("loading master key: %w", err)
	}
	if len(master) < minMasterKeyLen {
		return nil, fmt.Errorf("master key must be at least %d bytes, got %d", minMasterKeyLen, len(master))
	}

	macKey := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(macKeyInfo)), macKey); err != nil {
		return nil, fmt.Errorf("deriving mac key: %w", err)
	}
	return &IntegrityGuard{macKey: macKey}, nil
}

// Seal wraps a codec record (version byte first) with generation prev+1.
func (g *IntegrityGuard) Seal(record []byte, prevGeneration uint32) ([]byte, error) {
	if len(record) == 0 {
		return nil, fmt.Errorf("sealing: %w: empty record", domain.ErrMalformedRecord)
	}
	if prevGeneration == math.MaxUint32 {
		return nil, domain.ErrGenerationExhausted
	}
	gen := prevGeneration + 1

	env := make([]byte, HeaderSize+len(record)-1)
	env[0] = record[0]
	binary.BigEndian.PutUint32(env[1:5], gen)
	copy(env[HeaderSize:], record[1:])
	copy(env[5:HeaderSize], g.mac(env[0], env[1:5], env[HeaderSize:]))
	return env, nil
}

// Open verifies an envelope and returns the codec record (version byte
// first) and its generation. known is the highest superseded generation for
// this tag, or nil when unknown. No payload bytes are returned on failure.
func (g *IntegrityGuard) Open(envelope []byte, known *uint32) ([]byte, uint32, error) {
	if len(envelope) == 0 {
		return nil, 0, fmt.Errorf("%w: empty envelope", domain.ErrAuthenticationFailed)
	}
	if envelope[0] != FormatVersion {
		return nil, 0, fmt.Errorf("%w: 0x%02x", domain.ErrUnsupportedVersion, envelope[0])
	}
	if len(envelope) < HeaderSize {
		return nil, 0, fmt.Errorf("%w: envelope of %d bytes", domain.ErrAuthenticationFailed, len(envelope))
	}

	genBytes := envelope[1:5]
	tag := envelope[5:HeaderSize]
	payload := envelope[HeaderSize:]
	if !hmac.Equal(tag, g.mac(envelope[0], genBytes, payload)) {
		return nil, 0, domain.ErrAuthenticationFailed
	}

	gen := binary.BigEndian.Uint32(genBytes)
	if gen == 0 {
		return nil, 0, fmt.Errorf("%w: generation zero", domain.ErrAuthenticationFailed)
	}
	if err := g.CheckGeneration(gen, known); err != nil {
		return nil, 0, err
	}

	record := make([]byte, 1+len(payload))
	record[0] = envelope[0]
	copy(record[1:], payload)
	return record, gen, nil
}

// CheckGeneration enforces that gen is strictly above the known floor.
func (g *IntegrityGuard) CheckGeneration(gen uint32, known *uint32) error {
	if known != nil && gen <= *known {
		return fmt.Errorf("%w: generation %d, floor %d", domain.ErrStaleGeneration, gen, *known)
	}
	return nil
}

func (g *IntegrityGuard) mac(version byte, gen, payload []byte) []byte {
	m := hmac.New(sha256.New, g.macKey)
	m.Write([]byte{version})
	m.Write(gen)
	m.Write(payload)
	return m.Sum(nil)[:TagSize]
}
