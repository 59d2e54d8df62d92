package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"

	"tag-wallet/internal/core/domain"

	"github.com/google/uuid"
)

// Catalog supplies products by id. Lookup returns nil, nil for an unknown id.
type Catalog interface {
	Lookup(ctx context.Context, id uint16) (*domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
}

// OperatorRepository defines persistence operations for operators.
type OperatorRepository interface {
	Create(ctx context.Context, op *domain.Operator) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Operator, error)
	GetByUsername(ctx context.Context, username string) (*domain.Operator, error)
}

// JournalRepository stores session outcomes.
type JournalRepository interface {
	Create(ctx context.Context, entry *domain.JournalEntry) error
	ListRecent(ctx context.Context, limit int) ([]domain.JournalEntry, error)
}

// AuditRepository stores operator audit logs.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// GenerationTracker remembers, per identity, the highest generation known
// to be superseded. An envelope whose generation is not above that floor is
// a replay. Floor returns ok=false when nothing is known for the identity.
type GenerationTracker interface {
	Floor(ctx context.Context, identity []byte) (floor uint32, ok bool, err error)
	// Advance raises the floor; a lower value than the stored one is ignored.
	Advance(ctx context.Context, identity []byte, floor uint32) error
}
