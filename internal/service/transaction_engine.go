package service

import (
	"context"
	"fmt"
	"sort"

	"tag-wallet/internal/core/domain"
	"tag-wallet/internal/core/ports"

	"github.com/google/uuid"
)

// TransactionEngine applies operations to a verified record. Every method is
// a pure function of its inputs: the input record is never modified and a
// failed operation produces no record.
type TransactionEngine struct{}

// NewTransactionEngine creates a new TransactionEngine.
func NewTransactionEngine() *TransactionEngine {
	return &TransactionEngine{}
}

// Apply dispatches op. Issue is not handled here because it starts from a
// blank tag rather than a decoded record; see Issue.
func (e *TransactionEngine) Apply(c *domain.Customer, op domain.Operation) (*domain.Customer, *domain.Receipt, error) {
	switch op.Kind {
	case domain.OperationPurchase:
		return e.Purchase(c, op.Items)
	case domain.OperationRecharge:
		return e.Recharge(c, op.Amount)
	case domain.OperationErase:
		return e.Erase(c, op.Auth)
	case domain.OperationInspect:
		return c, &domain.Receipt{Kind: domain.OperationInspect, Items: c.Items, Balance: c.Balance}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported operation %q", op.Kind)
	}
}

// Purchase debits the total of items and appends them to the history.
// A shortfall is reported as *domain.InsufficientBalanceError.
func (e *TransactionEngine) Purchase(c *domain.Customer, items []domain.LineItem) (*domain.Customer, *domain.Receipt, error) {
	if len(items) == 0 {
		return nil, nil, fmt.Errorf("%w: empty purchase", domain.ErrInvalidQuantity)
	}
	total, err := domain.Total(items)
	if err != nil {
		return nil, nil, err
	}
	next, err := c.ApplyDebit(items)
	if err != nil {
		return nil, nil, err
	}
	return next, &domain.Receipt{
		Kind:    domain.OperationPurchase,
		Items:   append([]domain.LineItem(nil), items...),
		Total:   total,
		Balance: next.Balance,
	}, nil
}

// Recharge credits amount. No upper bound is applied here; limits are a
// policy of whoever authorizes the recharge.
func (e *TransactionEngine) Recharge(c *domain.Customer, amount uint64) (*domain.Customer, *domain.Receipt, error) {
	next, err := c.ApplyCredit(amount)
	if err != nil {
		return nil, nil, err
	}
	return next, &domain.Receipt{
		Kind:    domain.OperationRecharge,
		Total:   amount,
		Balance: next.Balance,
	}, nil
}

// Erase resets balance and history for a new holder. It requires a
// supervisor authorization.
func (e *TransactionEngine) Erase(c *domain.Customer, auth *domain.Authorization) (*domain.Customer, *domain.Receipt, error) {
	if !auth.IsSupervisor() {
		return nil, nil, fmt.Errorf("%w: erase requires supervisor", domain.ErrUnauthorized)
	}
	return c.Erased(), &domain.Receipt{Kind: domain.OperationErase}, nil
}

// Issue creates the first record for a blank tag with a fresh identity.
func (e *TransactionEngine) Issue(auth *domain.Authorization) (*domain.Customer, *domain.Receipt, error) {
	if !auth.IsSupervisor() {
		return nil, nil, fmt.Errorf("%w: issue requires supervisor", domain.ErrUnauthorized)
	}
	id := uuid.New()
	return &domain.Customer{ID: id[:]}, &domain.Receipt{Kind: domain.OperationIssue}, nil
}

// CartService resolves product selections against the catalog.
type CartService struct {
	catalog ports.Catalog
}

// NewCartService creates a new CartService.
func NewCartService(catalog ports.Catalog) *CartService {
	return &CartService{catalog: catalog}
}

// ResolveCart prices a product -> quantity selection with current catalog
// prices. Lines come back sorted by product id.
func (s *CartService) ResolveCart(ctx context.Context, selection map[uint16]uint16) ([]domain.LineItem, error) {
	if len(selection) == 0 {
		return nil, fmt.Errorf("%w: empty selection", domain.ErrInvalidQuantity)
	}
	ids := make([]uint16, 0, len(selection))
	for id := range selection {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	items := make([]domain.LineItem, 0, len(ids))
	for _, id := range ids {
		qty := selection[id]
		if qty == 0 {
			return nil, fmt.Errorf("%w: product %d", domain.ErrInvalidQuantity, id)
		}
		p, err := s.catalog.Lookup(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("catalog lookup %d: %w", id, err)
		}
		if p == nil {
			return nil, fmt.Errorf("%w: %d", domain.ErrUnknownProduct, id)
		}
		items = append(items, p.LineItem(qty))
	}
	return items, nil
}
