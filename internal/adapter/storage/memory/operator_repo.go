package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tag-wallet/internal/core/domain"

	"github.com/google/uuid"
)

// OperatorRepository keeps operators in memory. It backs login when the
// terminal runs without PostgreSQL.
type OperatorRepository struct {
	mu         sync.RWMutex
	byID       map[uuid.UUID]*domain.Operator
	byUsername map[string]*domain.Operator
}

// NewOperatorRepository creates an empty repository.
func NewOperatorRepository() *OperatorRepository {
	return &OperatorRepository{
		byID:       make(map[uuid.UUID]*domain.Operator),
		byUsername: make(map[string]*domain.Operator),
	}
}

// Create implements ports.OperatorRepository.
func (r *OperatorRepository) Create(_ context.Context, op *domain.Operator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byUsername[op.Username]; exists {
		return fmt.Errorf("operator %q already exists", op.Username)
	}
	if op.ID == uuid.Nil {
		op.ID = uuid.New()
	}
	now := time.Now().UTC()
	op.CreatedAt, op.UpdatedAt = now, now
	cp := *op
	r.byID[cp.ID] = &cp
	r.byUsername[cp.Username] = &cp
	return nil
}

// GetByID implements ports.OperatorRepository.
func (r *OperatorRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Operator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *op
	return &cp, nil
}

// GetByUsername implements ports.OperatorRepository.
func (r *OperatorRepository) GetByUsername(_ context.Context, username string) (*domain.Operator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.byUsername[username]
	if !ok {
		return nil, nil
	}
	cp := *op
	return &cp, nil
}
