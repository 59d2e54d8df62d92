package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"time"

	"tag-wallet/internal/core/domain"

	"github.com/google/uuid"
)

// EncryptionService handles AES-256-GCM encryption/decryption.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// SignatureService handles HMAC-SHA256 signing and verification.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
}

// HashService handles PIN hashing (Argon2id).
type HashService interface {
	Hash(pin string) (string, error)
	Verify(pin string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(operatorID uuid.UUID, role domain.Role) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	OperatorID uuid.UUID
	Role       domain.Role
}

// RateLimiter counts attempts in fixed windows.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}

// SessionNotifier receives the two outward notifications of a session.
type SessionNotifier interface {
	OnTagAccepted(ctx context.Context, outcome *domain.Outcome)
	OnTagRejected(ctx context.Context, rejection *domain.Rejection)
}

// --- Service Ports (Business Logic) ---

// Terminal is the session controller as seen by the HTTP edge.
type Terminal interface {
	Arm(op domain.Operation) error
	Disarm()
	Armed() (domain.Operation, bool)
	State() domain.SessionState
	LastOutcome() *domain.Outcome
	HandleTag(ctx context.Context, device TagDevice) (*domain.Outcome, error)
}

// CartService resolves a product selection into priced line items.
type CartService interface {
	ResolveCart(ctx context.Context, selection map[uint16]uint16) ([]domain.LineItem, error)
}

// AuthService defines operator authentication.
type AuthService interface {
	Login(ctx context.Context, username, pin string) (string, time.Time, error) // token, expiry, error
}

// AuditService records operator actions.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
