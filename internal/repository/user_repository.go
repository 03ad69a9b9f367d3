package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ahmadqo/event-certificate-service/internal/model"
	"github.com/jmoiron/sqlx"
)

// UserRepository baca data issuer; pengelolaan akun ada di layanan auth
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	query := `
		SELECT id, name, email, role, department, is_active, created_at, updated_at
		FROM users
		WHERE id = $1
		LIMIT 1
	`
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}
