package storage

import (
	"context"

	"github.com/agamariel/markstation/internal/models"
)

// MockOperatorStorage - мок для тестирования (экспортируемый для использования в других пакетах)
type MockOperatorStorage struct {
	CreateFunc     func(ctx context.Context, operator *models.Operator) error
	GetByLoginFunc func(ctx context.Context, login string) (*models.Operator, error)
}

func (m *MockOperatorStorage) Create(ctx context.Context, operator *models.Operator) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, operator)
	}
	return nil
}

func (m *MockOperatorStorage) GetByLogin(ctx context.Context, login string) (*models.Operator, error) {
	if m.GetByLoginFunc != nil {
		return m.GetByLoginFunc(ctx, login)
	}
	return nil, ErrOperatorNotFound
}
