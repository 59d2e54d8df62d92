package service

import (
	"context"
	"fmt"
	"time"

	"tag-wallet/internal/core/ports"
	"tag-wallet/pkg/apperror"
)

// AuthServiceImpl implements ports.AuthService for terminal operators.
type AuthServiceImpl struct {
	operatorRepo ports.OperatorRepository
	hashSvc      ports.HashService
	tokenSvc     ports.TokenService
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	operatorRepo ports.OperatorRepository,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		operatorRepo: operatorRepo,
		hashSvc:      hashSvc,
		tokenSvc:     tokenSvc,
	}
}

// Login validates the operator's PIN and returns a JWT carrying the role.
func (s *AuthServiceImpl) Login(ctx context.Context, username, pin string) (string, time.Time, error) {
	op, err := s.operatorRepo.GetByUsername(ctx, username)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("find operator: %w", err))
	}
	if op == nil {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	valid, err := s.hashSvc.Verify(pin, op.PINHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify pin: %w", err))
	}
	if !valid {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}
	if !op.IsActive() {
		return "", time.Time{}, apperror.ErrOperatorDisabled()
	}

	token, expiry, err := s.tokenSvc.Generate(op.ID, op.Role)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}
	return token, expiry, nil
}
