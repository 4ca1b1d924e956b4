package store

import (
	"context"

	"tradeledger/internal/models"
)

type UserStore struct {
	db DB
}

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(ctx context.Context, tx Execer, id, username, email, passwordHash string) error {
	query := `
		INSERT INTO users (id, username, email, password_hash)
		VALUES ($1, $2, $3, $4)
	`
	_, err := tx.ExecContext(ctx, query, id, username, email, passwordHash)
	return err
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var row models.User
	err := s.db.GetContext(ctx, &row, `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE email = $1
	`, email)
	if err != nil {
		return models.User{}, err
	}
	return row, nil
}

func (s *UserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	var row models.User
	err := s.db.GetContext(ctx, &row, `
		SELECT id, username, email, created_at
		FROM users
		WHERE id = $1
	`, userID)
	if err != nil {
		return models.User{}, err
	}
	return row, nil
}
