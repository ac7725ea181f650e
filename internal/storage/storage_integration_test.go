//go:build integration
// +build integration

package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/agamariel/markstation/internal/migrations"
	"github.com/agamariel/markstation/internal/models"
)

func getTestDB(t *testing.T) *sql.DB {
	dbURI := os.Getenv("DATABASE_URI")
	if dbURI == "" {
		t.Skip("DATABASE_URI not set, skipping integration tests")
	}

	db, err := sql.Open("pgx", dbURI)
	if err != nil {
		t.Fatalf("Unable to connect to database: %v", err)
	}
	if err := migrations.Run(db); err != nil {
		t.Fatalf("Unable to run migrations: %v", err)
	}

	return db
}

func TestPostgresOperatorStorage_Integration(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	storage := NewPostgresOperatorStorage(db)
	ctx := context.Background()
	login := "cashier_" + uuid.New().String()

	t.Run("successful create", func(t *testing.T) {
		op := &models.Operator{Login: login, PasswordHash: "hash"}
		if err := storage.Create(ctx, op); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		retrieved, err := storage.GetByLogin(ctx, login)
		if err != nil {
			t.Fatalf("GetByLogin() error = %v", err)
		}
		if retrieved.ID != op.ID {
			t.Errorf("ID mismatch: got %v, want %v", retrieved.ID, op.ID)
		}
	})

	t.Run("duplicate login", func(t *testing.T) {
		err := storage.Create(ctx, &models.Operator{Login: login, PasswordHash: "hash2"})
		if !errors.Is(err, ErrLoginExists) {
			t.Errorf("Expected ErrLoginExists, got %v", err)
		}
	})
}

func TestPostgresOrderStorage_Integration(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	ctx := context.Background()
	orderID := "it_" + uuid.New().String()[:8]

	_, err := db.ExecContext(ctx, `
		INSERT INTO orders (order_id, name, email, product_name, case_weight, price, quantity, total_weight, total_amount, is_marked)
		VALUES ($1, 'Тест', 'test@example.com', 'Milk', 1, 100, 3, 3, 300, TRUE),
		       ($1, 'Тест', 'test@example.com', 'Bread', 0.5, 50, 1, 0.5, 50, FALSE)
	`, orderID)
	if err != nil {
		t.Fatalf("seed orders: %v", err)
	}

	storage := NewPostgresOrderStorage(db)

	customer, lines, err := storage.LookupOrder(ctx, orderID)
	if err != nil {
		t.Fatalf("LookupOrder() error = %v", err)
	}
	if customer.Email != "test@example.com" || len(lines) != 2 {
		t.Fatalf("unexpected order: %+v %+v", customer, lines)
	}

	if err := storage.PersistMark(ctx, orderID, "Milk", "0104600000000001215abc"); err != nil {
		t.Fatalf("PersistMark() error = %v", err)
	}

	_, lines, err = storage.LookupOrder(ctx, orderID)
	if err != nil {
		t.Fatalf("LookupOrder() error = %v", err)
	}
	if lines[0].MarkCode != "0104600000000001215abc" {
		t.Errorf("mark not persisted: %q", lines[0].MarkCode)
	}

	if err := storage.PersistMark(ctx, orderID, "Nope", "x"); !errors.Is(err, ErrOrderLineNotFound) {
		t.Errorf("Expected ErrOrderLineNotFound, got %v", err)
	}
}
