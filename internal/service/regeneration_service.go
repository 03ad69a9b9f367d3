package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/ahmadqo/event-certificate-service/internal/config"
	"github.com/ahmadqo/event-certificate-service/internal/model"
	"github.com/ahmadqo/event-certificate-service/internal/repository"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBatchSize = 5
	maxBatchSize     = 50
)

// regenerableStatuses sertifikat yang artefaknya pernah dibuat dan masih berlaku
var regenerableStatuses = []model.CertificateStatus{model.StatusGenerated, model.StatusIssued}

type RegenerationService interface {
	RegenerateAll(ctx context.Context, formats []model.ArtifactFormat, batchSize int) (*model.BulkReport, error)
	RegenerateByEvent(ctx context.Context, eventID string, formats []model.ArtifactFormat, batchSize int) (*model.BulkReport, error)
	ForceRegenerate(ctx context.Context, certificateID string, formats []model.ArtifactFormat, actorID, originIP string) (*model.Certificate, error)
	RunBulk(ctx context.Context, req model.BulkRequest) (*model.BulkReport, error)
}

type regenerationService struct {
	repo         repository.CertificateRepository
	certificates CertificateService
	batchSize    int
	cooldown     time.Duration
}

func NewRegenerationService(repo repository.CertificateRepository, certificates CertificateService, cfg config.BulkConfig) RegenerationService {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &regenerationService{
		repo:         repo,
		certificates: certificates,
		batchSize:    batchSize,
		cooldown:     cfg.Cooldown,
	}
}

func (s *regenerationService) RegenerateAll(ctx context.Context, formats []model.ArtifactFormat, batchSize int) (*model.BulkReport, error) {
	return s.regenerate(ctx, model.BulkRegenerateAll, model.RegenerationFilter{Statuses: regenerableStatuses}, formats, batchSize)
}

func (s *regenerationService) RegenerateByEvent(ctx context.Context, eventID string, formats []model.ArtifactFormat, batchSize int) (*model.BulkReport, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return nil, validationError("eventId wajib diisi")
	}
	filter := model.RegenerationFilter{Statuses: regenerableStatuses, EventID: eventID}
	return s.regenerate(ctx, model.BulkRegenerateEvent, filter, formats, batchSize)
}

func (s *regenerationService) regenerate(ctx context.Context, operation string, filter model.RegenerationFilter, formats []model.ArtifactFormat, batchSize int) (*model.BulkReport, error) {
	formats, err := normalizeFormats(formats)
	if err != nil {
		return nil, err
	}
	batchSize, err = s.resolveBatchSize(batchSize)
	if err != nil {
		return nil, err
	}

	ids, err := s.repo.FindForRegeneration(ctx, filter)
	if err != nil {
		return nil, err
	}

	report := s.run(ctx, operation, ids, batchSize, s.cooldown, func(ctx context.Context, id string) (model.BulkResult, error) {
		cert, err := s.certificates.Generate(ctx, id, formats)
		if err != nil {
			return model.BulkResult{}, err
		}
		s.certificates.Audit(ctx, id, model.AuditEntry{
			Action: model.AuditRegenerated,
			Note:   "Bulk " + operation,
		})
		return model.BulkResult{
			CertificateID: id,
			Status:        cert.Status,
			GeneratedAt:   cert.CertificateData.GeneratedAt,
		}, nil
	})
	return report, nil
}

// ForceRegenerate hapus buffer lama lalu render ulang tanpa shortcut
func (s *regenerationService) ForceRegenerate(ctx context.Context, certificateID string, formats []model.ArtifactFormat, actorID, originIP string) (*model.Certificate, error) {
	formats, err := normalizeFormats(formats)
	if err != nil {
		return nil, err
	}

	cert, err := s.certificates.Get(ctx, certificateID)
	if err != nil {
		return nil, err
	}
	if cert.Status == model.StatusRevoked {
		return nil, ErrCertificateRevoked
	}

	if err := s.certificates.Cleanup(ctx, cert.CertificateID); err != nil {
		return nil, err
	}

	cert, err = s.certificates.Generate(ctx, cert.CertificateID, formats)
	if err != nil {
		return nil, err
	}

	entry := model.AuditEntry{
		Action: model.AuditForceRegenerated,
		Note:   "Force regenerate",
		IP:     originIP,
	}
	if actorID != "" {
		entry.ByUser = &actorID
	}
	s.certificates.Audit(ctx, cert.CertificateID, entry)

	return cert, nil
}

func (s *regenerationService) RunBulk(ctx context.Context, req model.BulkRequest) (*model.BulkReport, error) {
	switch strings.TrimSpace(req.Operation) {
	case model.BulkRegenerateAll:
		return s.RegenerateAll(ctx, req.Formats, req.BatchSize)

	case model.BulkRegenerateEvent:
		return s.RegenerateByEvent(ctx, req.EventID, req.Formats, req.BatchSize)

	case model.BulkCleanupAll:
		batchSize, err := s.resolveBatchSize(req.BatchSize)
		if err != nil {
			return nil, err
		}
		ids, err := s.repo.FindForRegeneration(ctx, model.RegenerationFilter{EventID: strings.TrimSpace(req.EventID)})
		if err != nil {
			return nil, err
		}
		// cleanup tidak menyentuh engine render, tidak perlu jeda antar batch
		return s.run(ctx, model.BulkCleanupAll, ids, batchSize, 0, func(ctx context.Context, id string) (model.BulkResult, error) {
			if err := s.certificates.Cleanup(ctx, id); err != nil {
				return model.BulkResult{}, err
			}
			cert, err := s.certificates.Get(ctx, id)
			if err != nil {
				return model.BulkResult{}, err
			}
			return model.BulkResult{CertificateID: id, Status: cert.Status}, nil
		}), nil

	default:
		return nil, validationError("operasi bulk tidak dikenal: %q", req.Operation)
	}
}

type memberFunc func(ctx context.Context, certificateID string) (model.BulkResult, error)

type outcome struct {
	result model.BulkResult
	err    error
}

// run memproses ids per batch. Anggota batch jalan bersamaan dan selalu ditunggu semua;
// pembatalan context hanya dicek di antara batch.
func (s *regenerationService) run(ctx context.Context, operation string, ids []string, batchSize int, cooldown time.Duration, fn memberFunc) *model.BulkReport {
	report := &model.BulkReport{
		Operation:         operation,
		TotalCertificates: len(ids),
		Results:           []model.BulkResult{},
		Errors:            []model.BulkError{},
	}
	logger := log.Ctx(ctx).With().Str("operation", operation).Logger()
	started := time.Now()

	// batch yang sudah jalan tidak ikut dibatalkan, render tetap dibatasi timeout renderer
	memberCtx := context.WithoutCancel(ctx)

	for start := 0; start < len(ids); start += batchSize {
		if start > 0 && !pause(ctx, cooldown) {
			report.Aborted = true
			break
		}
		if ctx.Err() != nil {
			report.Aborted = true
			break
		}

		end := min(start+batchSize, len(ids))
		batch := ids[start:end]
		outcomes := make([]outcome, len(batch))

		var g errgroup.Group
		for i, id := range batch {
			g.Go(func() error {
				res, err := fn(memberCtx, id)
				outcomes[i] = outcome{result: res, err: err}
				return nil
			})
		}
		_ = g.Wait()

		for i, o := range outcomes {
			if o.err != nil {
				report.Errors = append(report.Errors, model.BulkError{CertificateID: batch[i], Error: o.err.Error()})
				logger.Warn().Err(o.err).Str("certificate_id", batch[i]).Msg("Bulk item failed")
				continue
			}
			report.Results = append(report.Results, o.result)
		}

		logger.Debug().Int("batch_start", start).Int("batch_size", len(batch)).Msg("Bulk batch finished")
	}

	report.Processed = len(report.Results)
	report.ErrorCount = len(report.Errors)
	if report.TotalCertificates > 0 {
		rate := float64(report.Processed) / float64(report.TotalCertificates) * 100
		report.SuccessRate = math.Round(rate*100) / 100
	}

	logger.Info().
		Int("total", report.TotalCertificates).
		Int("processed", report.Processed).
		Int("errors", report.ErrorCount).
		Bool("aborted", report.Aborted).
		Dur("duration", time.Since(started)).
		Msg("Bulk operation finished")
	return report
}

func (s *regenerationService) resolveBatchSize(n int) (int, error) {
	switch {
	case n == 0:
		return s.batchSize, nil
	case n < 0 || n > maxBatchSize:
		return 0, validationError("batchSize harus antara 1 dan %d", maxBatchSize)
	}
	return n, nil
}

// pause jeda antar batch, false jika context dibatalkan selama jeda
func pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
