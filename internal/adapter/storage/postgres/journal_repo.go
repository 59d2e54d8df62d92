package postgres

import (
	"context"
	"fmt"

	"tag-wallet/internal/core/domain"
)

// JournalRepo implements ports.JournalRepository.
type JournalRepo struct {
	pool Pool
}

// NewJournalRepo creates a new JournalRepo.
func NewJournalRepo(pool Pool) *JournalRepo {
	return &JournalRepo{pool: pool}
}

// Create appends one session outcome.
func (r *JournalRepo) Create(ctx context.Context, e *domain.JournalEntry) error {
	query := `INSERT INTO session_journal (id, session_id, operation, status, identity_enc, total, balance, generation, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		e.ID, e.SessionID, string(e.Operation), string(e.Status), e.IdentityEncrypted,
		e.Total, e.Balance, e.Generation, e.Reason, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

// ListRecent returns the newest entries first.
func (r *JournalRepo) ListRecent(ctx context.Context, limit int) ([]domain.JournalEntry, error) {
	query := `SELECT id, session_id, operation, status, identity_enc, total, balance, generation, reason, created_at
		FROM session_journal ORDER BY created_at DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}
	defer rows.Close()

	var out []domain.JournalEntry
	for rows.Next() {
		var (
			e         domain.JournalEntry
			operation string
			status    string
		)
		if err := rows.Scan(
			&e.ID, &e.SessionID, &operation, &status, &e.IdentityEncrypted,
			&e.Total, &e.Balance, &e.Generation, &e.Reason, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		e.Operation = domain.OperationKind(operation)
		e.Status = domain.JournalStatus(status)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return out, nil
}
