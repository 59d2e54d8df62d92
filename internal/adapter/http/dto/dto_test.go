package dto

import (
	"testing"
	"time"

	"tag-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOutcomeResponse_Nil(t *testing.T) {
	assert.Nil(t, NewOutcomeResponse(nil))
}

func TestNewOutcomeResponse_Accepted(t *testing.T) {
	id := uuid.New()
	o := &domain.Outcome{
		SessionID: id,
		Customer:  &domain.Customer{ID: []byte{0x0a, 0xff}, Balance: 50},
		Receipt: &domain.Receipt{
			Kind:       domain.OperationRecharge,
			Total:      50,
			Balance:    50,
			Generation: 2,
			CreatedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		},
	}

	resp := NewOutcomeResponse(o)
	require.NotNil(t, resp)
	assert.True(t, resp.Accepted)
	assert.Equal(t, id.String(), resp.SessionID)
	require.NotNil(t, resp.Record)
	assert.Equal(t, "0aff", resp.Record.Identity)
	assert.NotNil(t, resp.Record.History)
	assert.Equal(t, "2026-01-02T03:04:05Z", resp.Receipt.CreatedAt)
	assert.Nil(t, resp.Rejection)
}

func TestNewOutcomeResponse_InsufficientBalanceOffersRecharge(t *testing.T) {
	o := &domain.Outcome{
		SessionID: uuid.New(),
		Rejection: &domain.Rejection{Reason: domain.RejectInsufficientBalance, Shortfall: 30, Balance: 20},
	}

	resp := NewOutcomeResponse(o)
	assert.False(t, resp.Accepted)
	assert.True(t, resp.Rejection.OfferRecharge)
	assert.Equal(t, uint64(30), resp.Rejection.Shortfall)
	assert.Nil(t, resp.Record)
}

func TestNewArmedResponse(t *testing.T) {
	resp := NewArmedResponse(domain.Operation{
		Kind:  domain.OperationPurchase,
		Items: []domain.LineItem{{ProductID: 1, Quantity: 3, UnitPrice: 20}},
	})
	assert.Equal(t, uint64(60), resp.Total)
}
