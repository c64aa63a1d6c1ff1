package service

import (
	"context"
	"errors"
	"strings"

	"github.com/paraiso-astral/gate-service/internal/auth"
	"github.com/paraiso-astral/gate-service/internal/config"
	"github.com/paraiso-astral/gate-service/internal/domain"
	"github.com/paraiso-astral/gate-service/internal/repository"
	apperrors "github.com/paraiso-astral/gate-service/pkg/util/errorutil"
)

// AuthService coordinates operator accounts and login.
type AuthService struct {
	operators  repository.OperatorRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, operators repository.OperatorRepository, tokens *auth.TokenManager) *AuthService {
	if tokens == nil {
		tokens = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	}
	return &AuthService{
		operators:  operators,
		tokenMgr:   tokens,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// OperatorInput describes a new operator account.
type OperatorInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.OperatorRole
	GateID   *string
}

// CreateOperator registers an operator account.
func (s *AuthService) CreateOperator(ctx context.Context, input OperatorInput) (*domain.Operator, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := s.operators.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, repository.ErrOperatorNotFound) {
		return nil, err
	}
	switch input.Role {
	case domain.OperatorRoleIssuer, domain.OperatorRoleGate, domain.OperatorRoleAdmin:
	default:
		return nil, apperrors.NewValidationError("unknown operator role", map[string]any{"role": input.Role})
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if errors.Is(err, auth.ErrWeakPassword) {
		return nil, apperrors.NewValidationError(err.Error(), nil)
	}
	if err != nil {
		return nil, err
	}
	operator := &domain.Operator{
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         input.Role,
		GateID:       input.GateID,
		Active:       true,
	}
	if err := s.operators.Create(ctx, operator); err != nil {
		return nil, err
	}
	return operator, nil
}

// Login authenticates an operator and returns a role-bearing token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Operator, string, *domain.Token, error) {
	operator, err := s.operators.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrOperatorNotFound) {
			return nil, "", nil, domain.ErrInvalidCredential
		}
		return nil, "", nil, err
	}
	if err := auth.ComparePassword(operator.PasswordHash, password); err != nil {
		return nil, "", nil, domain.ErrInvalidCredential
	}
	if !operator.Active {
		return nil, "", nil, domain.ErrOperatorInactive
	}
	token, meta, err := s.tokenMgr.GenerateToken(operator)
	if err != nil {
		return nil, "", nil, err
	}
	return operator, token, meta, nil
}

// SetOperatorActive enables or disables an operator.
func (s *AuthService) SetOperatorActive(ctx context.Context, id string, active bool) error {
	err := s.operators.SetActive(ctx, id, active)
	if errors.Is(err, repository.ErrOperatorNotFound) {
		return apperrors.NewNotFound("operator", map[string]any{"id": id})
	}
	return err
}
