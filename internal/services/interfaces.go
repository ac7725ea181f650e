package services

import (
	"context"

	"github.com/agamariel/markstation/internal/models"
)

// OperatorStorage определяет интерфейс для работы с операторами.
type OperatorStorage interface {
	Create(ctx context.Context, operator *models.Operator) error
	GetByLogin(ctx context.Context, login string) (*models.Operator, error)
}
