package models

import (
	"time"

	"github.com/google/uuid"
)

// Operator представляет оператора станции.
type Operator struct {
	ID           uuid.UUID `db:"id"`
	Login        string    `db:"login"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

// RegisterRequest - запрос на регистрацию оператора.
type RegisterRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// LoginRequest - запрос на вход оператора.
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}
