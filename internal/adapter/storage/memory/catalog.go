package memory

import (
	"context"
	"fmt"
	"sort"

	"tag-wallet/internal/core/domain"
)

// Catalog is a fixed product list loaded at startup.
type Catalog struct {
	byID map[uint16]domain.Product
	list []domain.Product
}

// NewCatalog indexes products. Duplicate ids are refused.
func NewCatalog(products []domain.Product) (*Catalog, error) {
	c := &Catalog{byID: make(map[uint16]domain.Product, len(products))}
	for _, p := range products {
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %d", p.ID)
		}
		c.byID[p.ID] = p
		c.list = append(c.list, p)
	}
	sort.Slice(c.list, func(i, j int) bool { return c.list[i].ID < c.list[j].ID })
	return c, nil
}

// Lookup implements ports.Catalog.
func (c *Catalog) Lookup(_ context.Context, id uint16) (*domain.Product, error) {
	p, ok := c.byID[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// List implements ports.Catalog.
func (c *Catalog) List(_ context.Context) ([]domain.Product, error) {
	return append([]domain.Product(nil), c.list...), nil
}
