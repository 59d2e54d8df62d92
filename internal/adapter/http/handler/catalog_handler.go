package handler

import (
	"tag-wallet/internal/adapter/http/dto"
	"tag-wallet/internal/core/ports"
	"tag-wallet/pkg/apperror"
	"tag-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

// CatalogHandler serves the product list for the order screen.
type CatalogHandler struct {
	catalog ports.Catalog
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalog ports.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListProducts handles GET /api/v1/products.
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	products, err := h.catalog.List(c.Request.Context())
	if err != nil {
		response.Error(c, apperror.ErrDatabaseError(err))
		return
	}

	items := make([]dto.ProductResponse, 0, len(products))
	for _, p := range products {
		items = append(items, dto.ProductResponse{ID: p.ID, Name: p.Name, Price: p.Price})
	}
	response.OK(c, items)
}
