package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ahmadqo/event-certificate-service/internal/config"
	"github.com/ahmadqo/event-certificate-service/internal/model"
	"github.com/ahmadqo/event-certificate-service/internal/repository"
	"github.com/ahmadqo/event-certificate-service/internal/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ApproverResolver memilih penandatangan yang di-stamp ke sertifikat
type ApproverResolver interface {
	Resolve(ctx context.Context) model.ApproverInfo
}

type ApproverService interface {
	ApproverResolver
	List(ctx context.Context) ([]*model.Approver, error)
	Create(ctx context.Context, req model.CreateApproverRequest) (*model.Approver, error)
	Activate(ctx context.Context, id string) (*model.Approver, error)
	Deactivate(ctx context.Context, id string) (*model.Approver, error)
	UploadSignature(ctx context.Context, id string, req model.UploadSignatureRequest) (*model.Approver, error)
}

type approverService struct {
	repo repository.ApproverRepository
	cfg  config.ApproverConfig
	now  func() time.Time

	// mu menyerialkan semua perubahan status aktif di proses ini,
	// role lock di repository menangani multi-instance
	mu sync.Mutex
}

func NewApproverService(repo repository.ApproverRepository, cfg config.ApproverConfig) ApproverService {
	return &approverService{repo: repo, cfg: cfg, now: time.Now}
}

// Resolve tidak pernah gagal. Urutan: aktif dengan tanda tangan aktif, aktif,
// approver apa saja, lalu nama fallback dari konfigurasi.
func (s *approverService) Resolve(ctx context.Context) model.ApproverInfo {
	lookups := []struct {
		name string
		find func(context.Context, model.Role) (*model.Approver, error)
	}{
		{"active_with_signature", s.repo.FindActiveWithActiveSignature},
		{"active", s.repo.FindActive},
		{"any", s.repo.FindAny},
	}

	for _, l := range lookups {
		approver, err := l.find(ctx, model.RoleApprover)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("rule", l.name).Msg("Approver lookup failed, trying next rule")
			continue
		}
		if approver == nil {
			continue
		}

		info := model.ApproverInfo{
			Name:       s.formatName(approver.Name),
			Department: approver.Department,
		}
		if approver.IsActive && approver.Signature.IsActive && approver.Signature.HasImage() {
			info.SignatureImage = approver.Signature.ImageData
			info.HasSignature = true
		}
		return info
	}

	return model.ApproverInfo{
		Name:       s.formatName(s.cfg.FallbackName),
		Department: s.cfg.FallbackDepartment,
	}
}

// formatName menambahkan gelar jika belum ada
func (s *approverService) formatName(name string) string {
	name = strings.TrimSpace(name)
	prefix := strings.TrimSpace(s.cfg.TitlePrefix)
	if prefix == "" || name == "" {
		return name
	}
	if strings.HasPrefix(strings.ToLower(name), strings.ToLower(prefix)) {
		return name
	}
	return prefix + " " + name
}

func (s *approverService) List(ctx context.Context) ([]*model.Approver, error) {
	return s.repo.FindAll(ctx, model.RoleApprover)
}

// Create approver baru langsung mengambil alih: yang lain dinonaktifkan di unit yang sama
func (s *approverService) Create(ctx context.Context, req model.CreateApproverRequest) (*model.Approver, error) {
	req.Name = utils.SanitizeString(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Department = utils.SanitizeString(req.Department)

	if req.Name == "" {
		return nil, validationError("nama approver wajib diisi")
	}
	if req.Email != "" && !utils.IsValidEmail(req.Email) {
		return nil, validationError("format email tidak valid")
	}

	approver := &model.Approver{
		ID:         uuid.New(),
		Name:       req.Name,
		Email:      req.Email,
		Department: req.Department,
		Role:       model.RoleApprover,
		IsActive:   true,
	}

	var created *model.Approver
	err := s.withRoleLock(ctx, func(repo repository.ApproverRepository) error {
		if _, err := deactivateOthers(ctx, repo, nil); err != nil {
			return err
		}
		if err := repo.Create(ctx, approver); err != nil {
			return err
		}
		var err error
		created, err = repo.FindByID(ctx, approver.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().Str("approver_id", approver.ID.String()).Str("name", approver.Name).Msg("Approver created and activated")
	return created, nil
}

func (s *approverService) Activate(ctx context.Context, id string) (*model.Approver, error) {
	uid, err := parseApproverID(id)
	if err != nil {
		return nil, err
	}

	var activated *model.Approver
	err = s.withRoleLock(ctx, func(repo repository.ApproverRepository) error {
		target, err := findApprover(ctx, repo, uid)
		if err != nil {
			return err
		}

		n, err := deactivateOthers(ctx, repo, &uid)
		if err != nil {
			return err
		}

		target.IsActive = true
		target.Signature.IsActive = target.Signature.HasImage()
		if err := repo.Update(ctx, target); err != nil {
			return err
		}

		log.Ctx(ctx).Info().Str("approver_id", id).Int64("deactivated", n).Msg("Approver activated")
		activated, err = repo.FindByID(ctx, uid)
		return err
	})
	if err != nil {
		return nil, err
	}
	return activated, nil
}

func (s *approverService) Deactivate(ctx context.Context, id string) (*model.Approver, error) {
	uid, err := parseApproverID(id)
	if err != nil {
		return nil, err
	}

	var deactivated *model.Approver
	err = s.withRoleLock(ctx, func(repo repository.ApproverRepository) error {
		target, err := findApprover(ctx, repo, uid)
		if err != nil {
			return err
		}

		target.IsActive = false
		target.Signature.IsActive = false
		if err := repo.Update(ctx, target); err != nil {
			return err
		}

		deactivated, err = repo.FindByID(ctx, uid)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().Str("approver_id", id).Msg("Approver deactivated")
	return deactivated, nil
}

// UploadSignature menyimpan tanda tangan. Status aktifnya mengikuti status approver.
func (s *approverService) UploadSignature(ctx context.Context, id string, req model.UploadSignatureRequest) (*model.Approver, error) {
	uid, err := parseApproverID(id)
	if err != nil {
		return nil, err
	}

	image, err := decodeImage(req.ImageBase64)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateUpload(http.DetectContentType(image), image); err != nil {
		return nil, validationError("%v", err)
	}

	signatureType := strings.ToLower(strings.TrimSpace(req.SignatureType))
	switch signatureType {
	case "":
		signatureType = "upload"
	case "upload", "drawn":
	default:
		return nil, validationError("signature_type harus upload atau drawn")
	}

	var updated *model.Approver
	err = s.withRoleLock(ctx, func(repo repository.ApproverRepository) error {
		target, err := findApprover(ctx, repo, uid)
		if err != nil {
			return err
		}

		uploadedAt := s.now()
		target.Signature = model.Signature{
			ImageData:     image,
			IsActive:      target.IsActive,
			UploadedAt:    &uploadedAt,
			FileName:      utils.SanitizeString(req.FileName),
			SignatureType: signatureType,
		}
		if err := repo.Update(ctx, target); err != nil {
			return err
		}

		updated, err = repo.FindByID(ctx, uid)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *approverService) withRoleLock(ctx context.Context, fn func(repo repository.ApproverRepository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.repo.WithRoleLock(ctx, model.RoleApprover, fn)
	if errors.Is(err, repository.ErrActiveConflict) {
		return fmt.Errorf("%w: %w", ErrTwoActiveApprovers, err)
	}
	return err
}

func deactivateOthers(ctx context.Context, repo repository.ApproverRepository, keep *uuid.UUID) (int64, error) {
	inactive := false
	return repo.UpdateMany(ctx,
		model.ApproverScope{Role: model.RoleApprover, ExcludeID: keep},
		model.ApproverPatch{IsActive: &inactive, SignatureActive: &inactive},
	)
}

func findApprover(ctx context.Context, repo repository.ApproverRepository, id uuid.UUID) (*model.Approver, error) {
	approver, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if approver == nil || approver.Role != model.RoleApprover {
		return nil, ErrApproverNotFound
	}
	return approver, nil
}

// parseApproverID ID yang bukan UUID tidak mungkin ada di store, jadi NotFound
func parseApproverID(id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return uuid.Nil, ErrApproverNotFound
	}
	return uid, nil
}

// decodeImage menerima base64 biasa atau data URI
func decodeImage(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if i := strings.Index(encoded, ","); strings.HasPrefix(encoded, "data:") && i > 0 {
		encoded = encoded[i+1:]
	}
	if encoded == "" {
		return nil, validationError("gambar tanda tangan wajib diisi")
	}

	image, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, validationError("gambar tanda tangan bukan base64 yang valid")
	}
	return image, nil
}
