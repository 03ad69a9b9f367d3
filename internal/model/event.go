package model

import (
	"time"

	"github.com/lib/pq"
)

type Event struct {
	ID              string         `db:"id"               json:"id"`
	Title           string         `db:"title"            json:"title"`
	StartDate       time.Time      `db:"start_date"       json:"start_date"`
	EndDate         time.Time      `db:"end_date"         json:"end_date"`
	Venue           string         `db:"venue"            json:"venue"`
	Mode            string         `db:"mode"             json:"mode"` // online | offline | hybrid
	CoordinatorName string         `db:"coordinator_name" json:"coordinator_name"`
	Skills          pq.StringArray `db:"skills"           json:"skills"`
	CreatedAt       time.Time      `db:"created_at"       json:"created_at"`
}
