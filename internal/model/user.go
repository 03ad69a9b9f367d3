package model

import (
	"time"
)

type Role string

const (
	RoleAdmin       Role = "admin"
	RoleCoordinator Role = "coordinator"
	RoleParticipant Role = "participant"
)

// User penerbit sertifikat (issuer). Akun dikelola oleh layanan auth platform.
type User struct {
	ID         string    `db:"id"         json:"id"`
	Name       string    `db:"name"       json:"name"`
	Email      string    `db:"email"      json:"email"`
	Role       Role      `db:"role"       json:"role"`
	Department string    `db:"department" json:"department"`
	IsActive   bool      `db:"is_active"  json:"is_active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// JWT Claims custom
type JWTClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Name   string `json:"name"`
}
