package storage

import (
	"context"

	"github.com/agamariel/markstation/internal/models"
)

// MockOrderStorage - мок хранилища заказов для тестов других пакетов.
type MockOrderStorage struct {
	LookupOrderFunc func(ctx context.Context, orderID string) (*models.Customer, []models.OrderLine, error)
	PersistMarkFunc func(ctx context.Context, orderID, productName, code string) error
}

func (m *MockOrderStorage) LookupOrder(ctx context.Context, orderID string) (*models.Customer, []models.OrderLine, error) {
	if m.LookupOrderFunc != nil {
		return m.LookupOrderFunc(ctx, orderID)
	}
	return nil, nil, ErrOrderNotFound
}

func (m *MockOrderStorage) PersistMark(ctx context.Context, orderID, productName, code string) error {
	if m.PersistMarkFunc != nil {
		return m.PersistMarkFunc(ctx, orderID, productName, code)
	}
	return nil
}
