package notify

import (
	"context"
	"math"
	"time"

	"tag-wallet/internal/core/domain"
	"tag-wallet/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const journalTimeout = 5 * time.Second

// JournalNotifier copies every outcome into the session journal. The
// identity token is stored AES-GCM encrypted. A failed write is logged and
// never affects the session, which has already committed to the tag.
type JournalNotifier struct {
	repo ports.JournalRepository
	enc  ports.EncryptionService
	log  zerolog.Logger
}

// NewJournalNotifier creates a JournalNotifier.
func NewJournalNotifier(repo ports.JournalRepository, enc ports.EncryptionService, log zerolog.Logger) *JournalNotifier {
	return &JournalNotifier{repo: repo, enc: enc, log: log}
}

// OnTagAccepted implements ports.SessionNotifier.
func (n *JournalNotifier) OnTagAccepted(ctx context.Context, o *domain.Outcome) {
	entry := &domain.JournalEntry{
		ID:        uuid.New(),
		SessionID: o.SessionID,
		Status:    domain.JournalStatusAccepted,
		CreatedAt: time.Now().UTC(),
	}
	if r := o.Receipt; r != nil {
		entry.Operation = r.Kind
		entry.Total = clampInt64(r.Total)
		entry.Balance = clampInt64(r.Balance)
		entry.Generation = int64(r.Generation)
	}
	if o.Customer != nil {
		enc, err := n.enc.Encrypt(o.Customer.IdentityHex())
		if err != nil {
			n.log.Error().Err(err).Str("session_id", o.SessionID.String()).Msg("journal: encrypting identity failed")
			return
		}
		entry.IdentityEncrypted = enc
	}
	n.persist(ctx, entry)
}

// OnTagRejected implements ports.SessionNotifier.
func (n *JournalNotifier) OnTagRejected(ctx context.Context, r *domain.Rejection) {
	reason := string(r.Reason)
	n.persist(ctx, &domain.JournalEntry{
		ID:        uuid.New(),
		SessionID: r.SessionID,
		Operation: r.Operation,
		Status:    domain.JournalStatusRejected,
		Total:     clampInt64(r.Shortfall),
		Balance:   clampInt64(r.Balance),
		Reason:    &reason,
		CreatedAt: time.Now().UTC(),
	})
}

func (n *JournalNotifier) persist(ctx context.Context, entry *domain.JournalEntry) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()
	if err := n.repo.Create(ctx, entry); err != nil {
		n.log.Error().Err(err).
			Str("session_id", entry.SessionID.String()).
			Str("status", string(entry.Status)).
			Msg("journal: failed to persist entry")
	}
}

func clampInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}
