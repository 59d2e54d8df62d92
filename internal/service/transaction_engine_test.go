package service

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"tag-wallet/internal/core/domain"
	"tag-wallet/internal/core/ports/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestTransactionEngine_PurchaseWithinBalance(t *testing.T) {
	e := NewTransactionEngine()
	c := &domain.Customer{ID: holderID, Balance: 500}
	items := []domain.LineItem{{ProductID: 1, Quantity: 2, UnitPrice: 150}}

	next, receipt, err := e.Purchase(c, items)
	require.NoError(t, err)

	assert.Equal(t, uint64(200), next.Balance)
	assert.Equal(t, items, next.Items)
	assert.Equal(t, uint64(300), receipt.Total)
	assert.Equal(t, uint64(200), receipt.Balance)
	assert.Equal(t, domain.OperationPurchase, receipt.Kind)

	assert.Equal(t, uint64(500), c.Balance, "input record is untouched")
	assert.Empty(t, c.Items)
}

func TestTransactionEngine_PurchaseShortfall(t *testing.T) {
	e := NewTransactionEngine()
	c := &domain.Customer{ID: holderID, Balance: 100, Items: []domain.LineItem{{ProductID: 9, Quantity: 1, UnitPrice: 5}}}
	before := c.Clone()

	next, receipt, err := e.Purchase(c, []domain.LineItem{{ProductID: 1, Quantity: 1, UnitPrice: 150}})
	require.Error(t, err)
	assert.Nil(t, next)
	assert.Nil(t, receipt)

	var short *domain.InsufficientBalanceError
	require.True(t, errors.As(err, &short))
	assert.Equal(t, uint64(50), short.Shortfall)
	assert.Equal(t, uint64(100), short.Balance)
	assert.Equal(t, uint64(150), short.Cost)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.True(t, before.Equal(c))
}

func TestTransactionEngine_PurchaseInvalid(t *testing.T) {
	e := NewTransactionEngine()
	c := &domain.Customer{ID: holderID, Balance: math.MaxUint64}

	_, _, err := e.Purchase(c, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, _, err = e.Purchase(c, []domain.LineItem{{ProductID: 1, Quantity: 0, UnitPrice: 1}})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	huge := domain.LineItem{ProductID: 1, Quantity: math.MaxUint16, UnitPrice: math.MaxUint32}
	many := make([]domain.LineItem, 70000)
	for i := range many {
		many[i] = huge
	}
	_, _, err = e.Purchase(c, many)
	assert.ErrorIs(t, err, domain.ErrBalanceOverflow)
}

func TestTransactionEngine_Recharge(t *testing.T) {
	e := NewTransactionEngine()
	c := &domain.Customer{ID: holderID, Balance: 100}

	next, receipt, err := e.Recharge(c, 400)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), next.Balance)
	assert.Equal(t, uint64(400), receipt.Total)

	next, _, err = e.Recharge(c, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), next.Balance)

	_, _, err = e.Recharge(&domain.Customer{ID: holderID, Balance: math.MaxUint64 - 1}, 2)
	assert.ErrorIs(t, err, domain.ErrBalanceOverflow)
}

func TestTransactionEngine_Erase(t *testing.T) {
	e := NewTransactionEngine()
	c := &domain.Customer{
		ID:      holderID,
		Balance: 200,
		Items: []domain.LineItem{
			{ProductID: 1, Quantity: 1, UnitPrice: 10},
			{ProductID: 2, Quantity: 1, UnitPrice: 20},
			{ProductID: 3, Quantity: 1, UnitPrice: 30},
		},
	}

	_, _, err := e.Erase(c, nil)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, _, err = e.Erase(c, cashier)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	next, receipt, err := e.Erase(c, supervisor)
	require.NoError(t, err)
	assert.Zero(t, next.Balance)
	assert.Empty(t, next.Items)
	assert.Equal(t, holderID, next.ID)
	assert.Equal(t, domain.OperationErase, receipt.Kind)
	assert.Len(t, c.Items, 3)
}

func TestTransactionEngine_Issue(t *testing.T) {
	e := NewTransactionEngine()

	_, _, err := e.Issue(cashier)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	a, _, err := e.Issue(supervisor)
	require.NoError(t, err)
	b, _, err := e.Issue(supervisor)
	require.NoError(t, err)

	assert.Len(t, a.ID, 16)
	assert.Zero(t, a.Balance)
	assert.NotEqual(t, a.ID, b.ID)
	assert.NoError(t, a.Validate())
}

func TestTransactionEngine_Apply(t *testing.T) {
	e := NewTransactionEngine()
	c := &domain.Customer{ID: holderID, Balance: 50}

	next, receipt, err := e.Apply(c, domain.Operation{Kind: domain.OperationInspect})
	require.NoError(t, err)
	assert.Same(t, c, next)
	assert.Equal(t, uint64(50), receipt.Balance)

	next, _, err = e.Apply(c, domain.Operation{Kind: domain.OperationRecharge, Amount: 5})
	require.NoError(t, err)
	assert.Equal(t, uint64(55), next.Balance)

	_, _, err = e.Apply(c, domain.Operation{Kind: domain.OperationIssue, Auth: supervisor})
	assert.Error(t, err)
	_, _, err = e.Apply(c, domain.Operation{Kind: "REFUND"})
	assert.Error(t, err)
}

func TestTransactionEngine_BalanceInvariant(t *testing.T) {
	e := NewTransactionEngine()
	rng := rand.New(rand.NewSource(7))

	c := &domain.Customer{ID: holderID, Balance: 1000}
	var credited, debited uint64
	const initial = 1000

	for i := 0; i < 2000; i++ {
		before := c.Clone()
		if rng.Intn(2) == 0 {
			amount := uint64(rng.Intn(500))
			next, _, err := e.Recharge(c, amount)
			require.NoError(t, err)
			c = next
			credited += amount
			continue
		}

		item := domain.LineItem{
			ProductID: uint16(rng.Intn(10)),
			Quantity:  uint16(1 + rng.Intn(3)),
			UnitPrice: uint32(1 + rng.Intn(400)),
		}
		next, _, err := e.Purchase(c, []domain.LineItem{item})
		if err != nil {
			var short *domain.InsufficientBalanceError
			require.True(t, errors.As(err, &short))
			assert.Equal(t, item.Subtotal()-c.Balance, short.Shortfall)
			assert.True(t, before.Equal(c), "rejected purchase must not change the record")
			continue
		}
		c = next
		debited += item.Subtotal()
	}

	assert.Equal(t, uint64(initial)+credited-debited, c.Balance)
}

func TestCartService_ResolveCart(t *testing.T) {
	ctrl := gomock.NewController(t)
	catalog := mocks.NewMockCatalog(ctrl)
	svc := NewCartService(catalog)
	ctx := context.Background()

	catalog.EXPECT().Lookup(gomock.Any(), uint16(1)).Return(&domain.Product{ID: 1, Name: "Beer", Price: 250}, nil)
	catalog.EXPECT().Lookup(gomock.Any(), uint16(4)).Return(&domain.Product{ID: 4, Name: "Chips", Price: 120}, nil)

	items, err := svc.ResolveCart(ctx, map[uint16]uint16{4: 1, 1: 2})
	require.NoError(t, err)
	assert.Equal(t, []domain.LineItem{
		{ProductID: 1, Quantity: 2, UnitPrice: 250},
		{ProductID: 4, Quantity: 1, UnitPrice: 120},
	}, items)
}

func TestCartService_ResolveCartErrors(t *testing.T) {
	tests := []struct {
		name      string
		selection map[uint16]uint16
		setup     func(*mocks.MockCatalog)
		want      error
	}{
		{
			name:      "empty selection",
			selection: map[uint16]uint16{},
			setup:     func(*mocks.MockCatalog) {},
			want:      domain.ErrInvalidQuantity,
		},
		{
			name:      "zero quantity",
			selection: map[uint16]uint16{1: 0},
			setup:     func(*mocks.MockCatalog) {},
			want:      domain.ErrInvalidQuantity,
		},
		{
			name:      "unknown product",
			selection: map[uint16]uint16{99: 1},
			setup: func(m *mocks.MockCatalog) {
				m.EXPECT().Lookup(gomock.Any(), uint16(99)).Return(nil, nil)
			},
			want: domain.ErrUnknownProduct,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			catalog := mocks.NewMockCatalog(ctrl)
			tt.setup(catalog)

			_, err := NewCartService(catalog).ResolveCart(context.Background(), tt.selection)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCartService_CatalogFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	catalog := mocks.NewMockCatalog(ctrl)
	boom := errors.New("connection refused")
	catalog.EXPECT().Lookup(gomock.Any(), uint16(1)).Return(nil, boom)

	_, err := NewCartService(catalog).ResolveCart(context.Background(), map[uint16]uint16{1: 1})
	assert.ErrorIs(t, err, boom)
}
