package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/agamariel/markstation/internal/models"
)

var (
	ErrOperatorNotFound = errors.New("operator not found")
	ErrLoginExists      = errors.New("login already exists")
)

// PostgresOperatorStorage хранит учётные записи операторов станции.
type PostgresOperatorStorage struct {
	db *sql.DB
}

// NewPostgresOperatorStorage создаёт новый экземпляр PostgresOperatorStorage.
func NewPostgresOperatorStorage(db *sql.DB) *PostgresOperatorStorage {
	return &PostgresOperatorStorage{db: db}
}

// Create создаёт оператора.
func (s *PostgresOperatorStorage) Create(ctx context.Context, operator *models.Operator) error {
	query := `
		INSERT INTO operators (id, login, password_hash, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING created_at
	`

	if operator.ID == uuid.Nil {
		operator.ID = uuid.New()
	}

	err := s.db.QueryRowContext(ctx, query,
		operator.ID,
		operator.Login,
		operator.PasswordHash,
	).Scan(&operator.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return ErrLoginExists
		}
		return fmt.Errorf("failed to create operator: %w", err)
	}

	return nil
}

// GetByLogin ищет оператора по логину.
func (s *PostgresOperatorStorage) GetByLogin(ctx context.Context, login string) (*models.Operator, error) {
	query := `
		SELECT id, login, password_hash, created_at
		FROM operators
		WHERE login = $1
	`

	operator := &models.Operator{}
	err := s.db.QueryRowContext(ctx, query, login).Scan(
		&operator.ID,
		&operator.Login,
		&operator.PasswordHash,
		&operator.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOperatorNotFound
		}
		return nil, fmt.Errorf("failed to get operator by login: %w", err)
	}

	return operator, nil
}
