package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ahmadqo/event-certificate-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type ParticipantRepository interface {
	FindByID(ctx context.Context, id string) (*model.Participant, error)
}

type participantRepository struct {
	db *sqlx.DB
}

func NewParticipantRepository(db *sqlx.DB) ParticipantRepository {
	return &participantRepository{db: db}
}

func (r *participantRepository) FindByID(ctx context.Context, id string) (*model.Participant, error) {
	var p model.Participant
	err := r.db.GetContext(ctx, &p,
		"SELECT id, name, email, department, created_at FROM participants WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}
