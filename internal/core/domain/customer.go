package domain

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math"
	"math/bits"
)

// MaxIdentityLen bounds the identity token so its length fits in one byte
// and leaves room for history on small tags.
const MaxIdentityLen = 64

// LineItem is one purchased product line. UnitPrice is captured at purchase
// time so old receipts stay accurate after catalog price changes.
type LineItem struct {
	ProductID uint16 `json:"product_id"`
	Quantity  uint16 `json:"quantity"`
	UnitPrice uint32 `json:"unit_price"`
}

// Subtotal returns quantity * unit price.
func (li LineItem) Subtotal() uint64 {
	return uint64(li.Quantity) * uint64(li.UnitPrice)
}

// Customer is the wallet record carried on a tag.
// Balance is in the smallest currency unit.
type Customer struct {
	ID      []byte     `json:"-"`
	Balance uint64     `json:"balance"`
	Items   []LineItem `json:"items"`
}

// IdentityHex returns the identity token as lowercase hex, for logs and APIs.
func (c *Customer) IdentityHex() string {
	return hex.EncodeToString(c.ID)
}

// Validate checks the local invariants of the record.
func (c *Customer) Validate() error {
	if len(c.ID) == 0 || len(c.ID) > MaxIdentityLen {
		return fmt.Errorf("%w: identity length %d", ErrMalformedRecord, len(c.ID))
	}
	for i, li := range c.Items {
		if li.Quantity == 0 {
			return fmt.Errorf("%w: item %d has zero quantity", ErrMalformedRecord, i)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (c *Customer) Clone() *Customer {
	out := &Customer{
		ID:      bytes.Clone(c.ID),
		Balance: c.Balance,
	}
	if c.Items != nil {
		out.Items = make([]LineItem, len(c.Items))
		copy(out.Items, c.Items)
	}
	return out
}

// Equal reports whether two records hold the same identity, balance and history.
func (c *Customer) Equal(o *Customer) bool {
	if c == nil || o == nil {
		return c == o
	}
	if !bytes.Equal(c.ID, o.ID) || c.Balance != o.Balance || len(c.Items) != len(o.Items) {
		return false
	}
	for i := range c.Items {
		if c.Items[i] != o.Items[i] {
			return false
		}
	}
	return true
}

// Total sums the subtotals of items, refusing quantities of zero and
// totals that do not fit in a uint64.
func Total(items []LineItem) (uint64, error) {
	var total uint64
	for _, li := range items {
		if li.Quantity == 0 {
			return 0, fmt.Errorf("%w: product %d", ErrInvalidQuantity, li.ProductID)
		}
		sum, carry := bits.Add64(total, li.Subtotal(), 0)
		if carry != 0 {
			return 0, ErrBalanceOverflow
		}
		total = sum
	}
	return total, nil
}

// ApplyCredit returns a copy of the record with amount added to the balance.
func (c *Customer) ApplyCredit(amount uint64) (*Customer, error) {
	if amount > math.MaxUint64-c.Balance {
		return nil, ErrBalanceOverflow
	}
	out := c.Clone()
	out.Balance += amount
	return out, nil
}

// ApplyDebit returns a copy of the record with items appended to the history
// and their total taken from the balance. The receiver is never modified; on
// a shortfall the error is an *InsufficientBalanceError.
func (c *Customer) ApplyDebit(items []LineItem) (*Customer, error) {
	cost, err := Total(items)
	if err != nil {
		return nil, err
	}
	if cost > c.Balance {
		return nil, &InsufficientBalanceError{
			Balance:   c.Balance,
			Cost:      cost,
			Shortfall: cost - c.Balance,
		}
	}
	out := c.Clone()
	out.Balance -= cost
	out.Items = append(out.Items, items...)
	return out, nil
}

// Erased returns the record reset for a new holder: same identity, zero
// balance, empty history.
func (c *Customer) Erased() *Customer {
	return &Customer{ID: bytes.Clone(c.ID)}
}
