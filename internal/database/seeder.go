package database

import (
	"context"

	"github.com/ahmadqo/event-certificate-service/internal/config"
	"github.com/ahmadqo/event-certificate-service/internal/model"
	"github.com/ahmadqo/event-certificate-service/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Seeder struct {
	approvers repository.ApproverRepository
	cfg       config.ApproverConfig
}

func NewSeeder(approvers repository.ApproverRepository, cfg config.ApproverConfig) *Seeder {
	return &Seeder{approvers: approvers, cfg: cfg}
}

// SeedFallbackApprover membuat approver default jika belum ada approver sama sekali
func (s *Seeder) SeedFallbackApprover(ctx context.Context) error {
	return s.approvers.WithRoleLock(ctx, model.RoleApprover, func(repo repository.ApproverRepository) error {
		existing, err := repo.FindAny(ctx, model.RoleApprover)
		if err != nil {
			return err
		}
		if existing != nil {
			log.Debug().Str("approver", existing.Name).Msg("Approver already exists, skipping seed")
			return nil
		}

		approver := &model.Approver{
			ID:         uuid.New(),
			Name:       s.cfg.FallbackName,
			Department: s.cfg.FallbackDepartment,
			Role:       model.RoleApprover,
			IsActive:   true,
		}
		if err := repo.Create(ctx, approver); err != nil {
			return err
		}

		log.Info().
			Str("approver", approver.Name).
			Str("department", approver.Department).
			Msg("Default approver created, upload a signature before issuing certificates")
		return nil
	})
}
