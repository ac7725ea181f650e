package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agamariel/markstation/internal/auth"
	"github.com/agamariel/markstation/internal/models"
	"github.com/agamariel/markstation/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmptyCredentials   = errors.New("login and password are required")
)

// OperatorService управляет учётными записями операторов станции.
type OperatorService struct {
	storage         OperatorStorage
	jwtSecret       string
	tokenExpiration time.Duration
	logger          *zap.SugaredLogger
}

// NewOperatorService создаёт новый экземпляр OperatorService.
func NewOperatorService(storage OperatorStorage, jwtSecret string, tokenExpiration time.Duration, logger *zap.SugaredLogger) *OperatorService {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &OperatorService{
		storage:         storage,
		jwtSecret:       jwtSecret,
		tokenExpiration: tokenExpiration,
		logger:          logger,
	}
}

// Register регистрирует нового оператора и выдаёт ему токен.
func (s *OperatorService) Register(ctx context.Context, login, password string) (*models.Operator, string, error) {
	if login == "" || password == "" {
		return nil, "", ErrEmptyCredentials
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	operator := &models.Operator{
		ID:           uuid.New(),
		Login:        login,
		PasswordHash: passwordHash,
	}

	if err := s.storage.Create(ctx, operator); err != nil {
		if errors.Is(err, storage.ErrLoginExists) {
			return nil, "", storage.ErrLoginExists
		}
		return nil, "", fmt.Errorf("failed to create operator: %w", err)
	}

	token, err := s.generateToken(operator)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Infow("operator registered", "login", login)
	return operator, token, nil
}

// Login проверяет учётные данные оператора.
func (s *OperatorService) Login(ctx context.Context, login, password string) (*models.Operator, string, error) {
	if login == "" || password == "" {
		return nil, "", ErrEmptyCredentials
	}

	operator, err := s.storage.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, storage.ErrOperatorNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to get operator: %w", err)
	}

	if !auth.CheckPassword(password, operator.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.generateToken(operator)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	return operator, token, nil
}

// EnsureOperator создаёт начального оператора, если такого логина ещё нет.
// Пустой логин означает, что начальный оператор не настроен.
func (s *OperatorService) EnsureOperator(ctx context.Context, login, password string) error {
	if login == "" {
		return nil
	}

	_, err := s.storage.GetByLogin(ctx, login)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrOperatorNotFound) {
		return fmt.Errorf("failed to check operator: %w", err)
	}

	_, _, err = s.Register(ctx, login, password)
	if err != nil && !errors.Is(err, storage.ErrLoginExists) {
		return fmt.Errorf("failed to bootstrap operator: %w", err)
	}
	return nil
}

func (s *OperatorService) generateToken(operator *models.Operator) (string, error) {
	exp := s.tokenExpiration
	if exp <= 0 {
		exp = 12 * time.Hour
	}
	return auth.GenerateToken(operator, s.jwtSecret, exp)
}
