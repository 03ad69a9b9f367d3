package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ahmadqo/event-certificate-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type EventRepository interface {
	FindByID(ctx context.Context, id string) (*model.Event, error)
}

type eventRepository struct {
	db *sqlx.DB
}

func NewEventRepository(db *sqlx.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) FindByID(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	query := `
		SELECT id, title, start_date, end_date, venue, mode, coordinator_name, skills, created_at
		FROM events
		WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &e, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}
