package service

import (
	"bytes"
	"encoding/binary"
	"testing"

	"tag-wallet/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerCodec_RoundTrip(t *testing.T) {
	codec := NewLedgerCodec()

	tests := []struct {
		name string
		c    *domain.Customer
	}{
		{"no history", &domain.Customer{ID: []byte{0xAB}, Balance: 0}},
		{"with history", &domain.Customer{
			ID:      holderID,
			Balance: 12345,
			Items: []domain.LineItem{
				{ProductID: 1, Quantity: 2, UnitPrice: 150},
				{ProductID: 65535, Quantity: 65535, UnitPrice: 4294967295},
			},
		}},
		{"max identity and balance", &domain.Customer{
			ID:      bytes.Repeat([]byte{0x7F}, domain.MaxIdentityLen),
			Balance: ^uint64(0),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := codec.Encode(tt.c)
			require.NoError(t, err)
			assert.Equal(t, FormatVersion, b[0])
			assert.Len(t, b, codec.EncodedLen(tt.c))

			got, err := codec.Decode(b)
			require.NoError(t, err)
			assert.True(t, tt.c.Equal(got), "decode(encode(r)) == r")
		})
	}
}

func TestLedgerCodec_Layout(t *testing.T) {
	c := &domain.Customer{
		ID:      []byte{0xAA, 0xBB},
		Balance: 500,
		Items:   []domain.LineItem{{ProductID: 3, Quantity: 2, UnitPrice: 150}},
	}
	b, err := NewLedgerCodec().Encode(c)
	require.NoError(t, err)

	want := []byte{
		0x01,             // version
		0x02, 0xAA, 0xBB, // identity
		0, 0, 0, 0, 0, 0, 0x01, 0xF4, // balance
		0x00, 0x01, // count
		0x00, 0x03, 0x00, 0x02, 0x00, 0x00, 0x00, 0x96, // item
	}
	assert.Equal(t, want, b)
}

func TestLedgerCodec_EncodeRefusesInvalidRecord(t *testing.T) {
	codec := NewLedgerCodec()

	_, err := codec.Encode(&domain.Customer{})
	assert.ErrorIs(t, err, domain.ErrMalformedRecord)

	_, err = codec.Encode(&domain.Customer{ID: []byte{1}, Items: []domain.LineItem{{ProductID: 1}}})
	assert.ErrorIs(t, err, domain.ErrMalformedRecord)

	big := &domain.Customer{ID: []byte{1}, Items: make([]domain.LineItem, MaxLineItems+1)}
	for i := range big.Items {
		big.Items[i].Quantity = 1
	}
	_, err = codec.Encode(big)
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
}

func TestLedgerCodec_DecodeRejects(t *testing.T) {
	valid, err := NewLedgerCodec().Encode(&domain.Customer{
		ID:      []byte{1, 2, 3},
		Balance: 10,
		Items:   []domain.LineItem{{ProductID: 1, Quantity: 1, UnitPrice: 10}},
	})
	require.NoError(t, err)

	withCount := func(n uint16) []byte {
		b := []byte{FormatVersion, 1, 9}
		b = binary.BigEndian.AppendUint64(b, 0)
		return binary.BigEndian.AppendUint16(b, n)
	}
	zeroQty := append(withCount(1), 0, 1, 0, 0, 0, 0, 0, 1)

	tests := []struct {
		name string
		in   []byte
		want error
	}{
		{"empty", nil, domain.ErrMalformedRecord},
		{"unknown version", []byte{0xFF}, domain.ErrUnsupportedVersion},
		{"unknown version with valid body", append([]byte{0xFF}, valid[1:]...), domain.ErrUnsupportedVersion},
		{"version only", []byte{FormatVersion}, domain.ErrMalformedRecord},
		{"zero identity length", []byte{FormatVersion, 0}, domain.ErrMalformedRecord},
		{"oversized identity length", append([]byte{FormatVersion, domain.MaxIdentityLen + 1}, make([]byte, 80)...), domain.ErrMalformedRecord},
		{"truncated identity", []byte{FormatVersion, 4, 1, 2}, domain.ErrMalformedRecord},
		{"truncated balance", []byte{FormatVersion, 1, 9, 0, 0}, domain.ErrMalformedRecord},
		{"truncated count", append([]byte{FormatVersion, 1, 9}, make([]byte, 9)...), domain.ErrMalformedRecord},
		{"truncated items", valid[:len(valid)-1], domain.ErrMalformedRecord},
		{"trailing bytes", append(append([]byte(nil), valid...), 0), domain.ErrMalformedRecord},
		{"count above limit", withCount(MaxLineItems + 1), domain.ErrMalformedRecord},
		{"zero quantity", zeroQty, domain.ErrMalformedRecord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewLedgerCodec().Decode(tt.in)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, c)
		})
	}
}

func TestLedgerCodec_DecodeDoesNotAliasInput(t *testing.T) {
	b, err := NewLedgerCodec().Encode(&domain.Customer{ID: []byte{7, 7}, Balance: 1})
	require.NoError(t, err)

	c, err := NewLedgerCodec().Decode(b)
	require.NoError(t, err)
	b[2] = 0
	assert.Equal(t, []byte{7, 7}, c.ID)
}
