package service

import (
	"encoding/binary"
	"fmt"

	"tag-wallet/internal/core/domain"
)

// FormatVersion is the only record layout this build reads or writes.
const FormatVersion byte = 0x01

// Record layout, all integers big-endian:
//
//	version u8 | idLen u8 | id | balance u64 | count u16 | count × (product u16, qty u16, price u32)
const (
	lineItemSize = 8
	// MaxLineItems caps the history so a decoder never allocates from an
	// attacker-chosen count beyond what any tag can hold.
	MaxLineItems = 1024
)

// LedgerCodec maps a Customer to and from its byte layout.
type LedgerCodec struct{}

// NewLedgerCodec creates a new LedgerCodec.
func NewLedgerCodec() *LedgerCodec {
	return &LedgerCodec{}
}

// EncodedLen returns the encoded size of c.
func (LedgerCodec) EncodedLen(c *domain.Customer) int {
	return 1 + 1 + len(c.ID) + 8 + 2 + lineItemSize*len(c.Items)
}

// Encode serializes c. It fails only for a record that violates its own
// invariants, which is a programming error upstream.
func (lc LedgerCodec) Encode(c *domain.Customer) ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}
	if len(c.Items) > MaxLineItems {
		return nil, fmt.Errorf("encoding record: %w: %d items", domain.ErrCapacityExceeded, len(c.Items))
	}

	buf := make([]byte, 0, lc.EncodedLen(c))
	buf = append(buf, FormatVersion, byte(len(c.ID)))
	buf = append(buf, c.ID...)
	buf = binary.BigEndian.AppendUint64(buf, c.Balance)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(c.Items)))
	for _, li := range c.Items {
		buf = binary.BigEndian.AppendUint16(buf, li.ProductID)
		buf = binary.BigEndian.AppendUint16(buf, li.Quantity)
		buf = binary.BigEndian.AppendUint32(buf, li.UnitPrice)
	}
	return buf, nil
}

// Decode parses a record. It refuses the whole record on any structural or
// invariant violation; nothing is clamped or skipped.
func (LedgerCodec) Decode(b []byte) (*domain.Customer, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty", domain.ErrMalformedRecord)
	}
	if b[0] != FormatVersion {
		return nil, fmt.Errorf("%w: 0x%02x", domain.ErrUnsupportedVersion, b[0])
	}

	r := reader{buf: b[1:]}
	idLen, ok := r.u8()
	if !ok {
		return nil, malformed("identity length truncated")
	}
	if idLen == 0 || int(idLen) > domain.MaxIdentityLen {
		return nil, malformed("identity length %d out of range", idLen)
	}
	id, ok := r.take(int(idLen))
	if !ok {
		return nil, malformed("identity truncated")
	}
	balance, ok := r.u64()
	if !ok {
		return nil, malformed("balance truncated")
	}
	count, ok := r.u16()
	if !ok {
		return nil, malformed("item count truncated")
	}
	if int(count) > MaxLineItems {
		return nil, malformed("item count %d exceeds %d", count, MaxLineItems)
	}
	if r.remaining() != int(count)*lineItemSize {
		return nil, malformed("item count %d does not match %d remaining bytes", count, r.remaining())
	}

	c := &domain.Customer{
		ID:      append([]byte(nil), id...),
		Balance: balance,
	}
	if count > 0 {
		c.Items = make([]domain.LineItem, 0, count)
	}
	for i := 0; i < int(count); i++ {
		pid, _ := r.u16()
		qty, _ := r.u16()
		price, _ := r.u32()
		if qty == 0 {
			return nil, malformed("item %d has zero quantity", i)
		}
		c.Items = append(c.Items, domain.LineItem{ProductID: pid, Quantity: qty, UnitPrice: price})
	}
	return c, nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{domain.ErrMalformedRecord}, args...)...)
}

// reader walks a byte slice without ever reading past its end.
type reader struct {
	buf []byte
}

func (r *reader) remaining() int { return len(r.buf) }

func (r *reader) take(n int) ([]byte, bool) {
	if len(r.buf) < n {
		return nil, false
	}
	out := r.buf[:n]
	r.buf = r.buf[n:]
	return out, true
}

func (r *reader) u8() (uint8, bool) {
	b, ok := r.take(1)
	if !ok {
		return 0, false
	}
	return b[0], true
}

func (r *reader) u16() (uint16, bool) {
	b, ok := r.take(2)
	if !ok {
		return 0, false
	}
	return binary.BigEndian.Uint16(b), true
}

func (r *reader) u32() (uint32, bool) {
	b, ok := r.take(4)
	if !ok {
		return 0, false
	}
	return binary.BigEndian.Uint32(b), true
}

func (r *reader) u64() (uint64, bool) {
	b, ok := r.take(8)
	if !ok {
		return 0, false
	}
	return binary.BigEndian.Uint64(b), true
}
