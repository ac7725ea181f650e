package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/agamariel/markstation/internal/models"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderLineNotFound = errors.New("order line not found")
)

// PostgresOrderStorage читает заказы и сохраняет принятые коды маркировки.
type PostgresOrderStorage struct {
	db *sql.DB
}

// NewPostgresOrderStorage создаёт новый экземпляр PostgresOrderStorage.
func NewPostgresOrderStorage(db *sql.DB) *PostgresOrderStorage {
	return &PostgresOrderStorage{db: db}
}

// LookupOrder возвращает реквизиты покупателя и строки заказа в порядке загрузки.
func (s *PostgresOrderStorage) LookupOrder(ctx context.Context, orderID string) (*models.Customer, []models.OrderLine, error) {
	query := `
		SELECT order_id, COALESCE(name, ''), COALESCE(email, ''), COALESCE(employee_id, ''),
		       COALESCE(phone, ''), COALESCE(delivery_point, ''), COALESCE(grd_code, ''),
		       product_name, case_weight, price, quantity, total_weight, total_amount,
		       is_marked, is_excise, COALESCE(gtin, ''), COALESCE(mark, '')
		FROM orders
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get order: %w", err)
	}
	defer rows.Close()

	var (
		customer *models.Customer
		lines    []models.OrderLine
	)
	for rows.Next() {
		var (
			c    models.Customer
			line models.OrderLine
		)
		if err := rows.Scan(
			&c.OrderID,
			&c.Name,
			&c.Email,
			&c.EmployeeID,
			&c.Phone,
			&c.DeliveryPoint,
			&c.GRDCode,
			&line.ProductName,
			&line.CaseWeight,
			&line.Price,
			&line.Quantity,
			&line.TotalWeight,
			&line.TotalAmount,
			&line.RequiresMark,
			&line.Excise,
			&line.GTIN,
			&line.MarkCode,
		); err != nil {
			return nil, nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		if customer == nil {
			customer = &c
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("rows iteration error: %w", err)
	}

	if customer == nil {
		return nil, nil, ErrOrderNotFound
	}

	return customer, lines, nil
}

// PersistMark сохраняет код маркировки в строке заказа.
func (s *PostgresOrderStorage) PersistMark(ctx context.Context, orderID, productName, code string) error {
	query := `
		UPDATE orders
		SET mark = $1, updated_at = NOW()
		WHERE order_id = $2 AND product_name = $3
	`

	result, err := s.db.ExecContext(ctx, query, code, orderID, productName)
	if err != nil {
		return fmt.Errorf("failed to persist mark: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to persist mark: %w", err)
	}
	if affected == 0 {
		return ErrOrderLineNotFound
	}

	return nil
}
