package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ahmadqo/event-certificate-service/internal/model"
	"github.com/ahmadqo/event-certificate-service/internal/render"
	"github.com/ahmadqo/event-certificate-service/internal/repository"
	"github.com/ahmadqo/event-certificate-service/internal/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	recentDays     = 30
	createAttempts = 5
)

// QRCodeEncoder encode URL verifikasi menjadi PNG
type QRCodeEncoder interface {
	Encode(content string) ([]byte, error)
}

// CertificateRenderer dipenuhi oleh *render.Renderer
type CertificateRenderer interface {
	Render(ctx context.Context, view render.CertificateView, approver model.ApproverInfo, qrPNG []byte, formats []model.ArtifactFormat) (*render.Artifacts, error)
}

// ArtifactArchive arsip artefak di blob store, dipenuhi oleh *utils.StorageService
type ArtifactArchive interface {
	PutArtifact(ctx context.Context, certificateID string, format model.ArtifactFormat, data []byte) (string, error)
}

// Artifact file yang dikirim ke client saat download
type Artifact struct {
	Data        []byte
	ContentType string
	FileName    string
}

type CertificateService interface {
	CreateFromCompletion(ctx context.Context, req model.CreateCertificateRequest) (*model.Certificate, bool, error)
	Generate(ctx context.Context, certificateID string, formats []model.ArtifactFormat) (*model.Certificate, error)
	Verify(ctx context.Context, certificateID, originIP string) (*model.VerifyResponse, error)
	RecordDownload(ctx context.Context, certificateID, actorID, originIP string) error
	Download(ctx context.Context, certificateID string, format model.ArtifactFormat, actorID, originIP string) (*Artifact, error)
	Cleanup(ctx context.Context, certificateID string) error
	UpdateStatus(ctx context.Context, certificateID string, req model.UpdateStatusRequest, actorID, originIP string) (*model.Certificate, error)
	Audit(ctx context.Context, certificateID string, entry model.AuditEntry)
	Get(ctx context.Context, certificateID string) (*model.Certificate, error)
	ListByParticipant(ctx context.Context, participantID string) ([]*model.Certificate, error)
	ListByEvent(ctx context.Context, eventID string) ([]*model.Certificate, error)
	StatusCounts(ctx context.Context) ([]model.StatusCount, error)
}

type certificateService struct {
	repo         repository.CertificateRepository
	participants repository.ParticipantRepository
	events       repository.EventRepository
	users        repository.UserRepository
	approvers    ApproverResolver
	qr           QRCodeEncoder
	renderer     CertificateRenderer
	archive      ArtifactArchive
	baseURL      string
	now          func() time.Time
}

// NewCertificateService archive boleh nil jika MinIO tidak dipakai
func NewCertificateService(
	repo repository.CertificateRepository,
	participants repository.ParticipantRepository,
	events repository.EventRepository,
	users repository.UserRepository,
	approvers ApproverResolver,
	qr QRCodeEncoder,
	renderer CertificateRenderer,
	archive ArtifactArchive,
	baseURL string,
) CertificateService {
	return &certificateService{
		repo: repo, participants: participants, events: events, users: users,
		approvers: approvers, qr: qr, renderer: renderer, archive: archive,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// CreateFromCompletion dipanggil saat peserta menyelesaikan event.
// Idempotent per pasangan peserta/event.
func (s *certificateService) CreateFromCompletion(ctx context.Context, req model.CreateCertificateRequest) (*model.Certificate, bool, error) {
	req.ParticipantID = strings.TrimSpace(req.ParticipantID)
	req.EventID = strings.TrimSpace(req.EventID)
	req.IssuerID = strings.TrimSpace(req.IssuerID)

	errs := utils.ValidationErrors{}
	if req.ParticipantID == "" {
		errs["participant_id"] = "participant_id wajib diisi"
	}
	if req.EventID == "" {
		errs["event_id"] = "event_id wajib diisi"
	}
	var expiry *time.Time
	if req.ExpiryDate != "" {
		t, err := utils.ParseDate(req.ExpiryDate)
		if err != nil {
			errs["expiry_date"] = "format expiry_date harus YYYY-MM-DD"
		} else {
			expiry = &t
		}
	}
	if errs.HasErrors() {
		return nil, false, &FieldError{Fields: errs}
	}

	existing, err := s.repo.FindByParticipantAndEvent(ctx, req.ParticipantID, req.EventID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	participant, err := s.participants.FindByID(ctx, req.ParticipantID)
	if err != nil {
		return nil, false, err
	}
	if participant == nil {
		return nil, false, ErrParticipantNotFound
	}

	event, err := s.events.FindByID(ctx, req.EventID)
	if err != nil {
		return nil, false, err
	}
	if event == nil {
		return nil, false, ErrEventNotFound
	}

	var issuerID *string
	if req.IssuerID != "" {
		issuer, err := s.users.FindByID(ctx, req.IssuerID)
		if err != nil {
			return nil, false, err
		}
		if issuer == nil {
			return nil, false, ErrIssuerNotFound
		}
		issuerID = &req.IssuerID
	}

	skills := req.Skills
	if len(skills) == 0 {
		skills = event.Skills
	}

	now := s.now()
	count, err := s.repo.CountByYear(ctx, now.Year())
	if err != nil {
		return nil, false, err
	}

	cert := &model.Certificate{
		ID:              uuid.NewString(),
		ParticipantID:   participant.ID,
		EventID:         event.ID,
		IssuerID:        issuerID,
		ParticipantName: participant.Name,
		EventTitle:      event.Title,
		EventStart:      event.StartDate,
		EventEnd:        event.EndDate,
		Venue:           event.Venue,
		Mode:            event.Mode,
		Skills:          append([]string(nil), skills...),
		Status:          model.StatusDraft,
		IssuedDate:      now,
		ExpiryDate:      expiry,
	}

	// nomor urut bisa bentrok jika ada create bersamaan, coba nomor berikutnya
	for attempt := 0; attempt < createAttempts; attempt++ {
		cert.CertificateID = utils.GenerateCertificateID(now.Year(), count+1+attempt)
		cert.Verification = model.Verification{VerificationURL: s.verificationURL(cert.CertificateID)}

		err = s.repo.Create(ctx, cert)
		if err == nil {
			log.Ctx(ctx).Info().
				Str("certificate_id", cert.CertificateID).
				Str("participant_id", cert.ParticipantID).
				Str("event_id", cert.EventID).
				Msg("Certificate created")
			created, err := s.repo.FindByCertificateID(ctx, cert.CertificateID)
			if err != nil {
				return nil, false, err
			}
			return created, true, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, false, err
		}

		existing, findErr := s.repo.FindByParticipantAndEvent(ctx, req.ParticipantID, req.EventID)
		if findErr != nil {
			return nil, false, findErr
		}
		if existing != nil {
			return existing, false, nil
		}
	}

	return nil, false, fmt.Errorf("gagal membuat nomor sertifikat: %w", err)
}

// Generate selalu render ulang artefak untuk format yang diminta. Tidak menulis audit log.
func (s *certificateService) Generate(ctx context.Context, certificateID string, formats []model.ArtifactFormat) (*model.Certificate, error) {
	formats, err := normalizeFormats(formats)
	if err != nil {
		return nil, err
	}

	cert, err := s.load(ctx, certificateID)
	if err != nil {
		return nil, err
	}
	if cert.Status == model.StatusRevoked {
		return nil, ErrCertificateRevoked
	}

	if err := s.refreshSource(ctx, cert); err != nil {
		return nil, err
	}

	approver := s.approvers.Resolve(ctx)

	qrPNG, err := s.qr.Encode(cert.Verification.VerificationURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cert.CertificateID, err)
	}

	artifacts, err := s.renderer.Render(ctx, toView(cert), approver, qrPNG, formats)
	if err != nil {
		return nil, err
	}

	generatedAt := s.now()
	data := &cert.CertificateData
	for _, f := range formats {
		buf := artifacts.Get(f)
		switch f {
		case model.FormatPDF:
			data.PDFBuffer = buf
		case model.FormatImage:
			data.ImageBuffer = buf
		}
	}
	primary := formats[0]
	size := int64(len(artifacts.Get(primary)))
	contentType := primary.ContentType()
	fileName := cert.CertificateID + primary.Extension()
	data.FileSize = &size
	data.ContentType = &contentType
	data.FileName = &fileName
	data.GeneratedAt = &generatedAt

	s.archiveArtifacts(ctx, cert, artifacts, formats)

	cert.Verification.QRCode = utils.DataURI("image/png", qrPNG)

	// status bisa berubah selama render, pakai nilai yang tersimpan
	status, err := s.repo.SaveArtifacts(ctx, cert)
	if err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			if err := s.writeConflict(ctx, cert.CertificateID); err != nil {
				return nil, err
			}
			return nil, ErrCertificateNotFound
		}
		return nil, err
	}
	cert.Status = status

	log.Ctx(ctx).Debug().
		Str("certificate_id", cert.CertificateID).
		Str("approver", approver.Name).
		Bool("signature", approver.HasSignature).
		Msg("Certificate generated")
	return cert, nil
}

// refreshSource ambil ulang data peserta dan event supaya artefak mengikuti data terbaru
func (s *certificateService) refreshSource(ctx context.Context, cert *model.Certificate) error {
	participant, err := s.participants.FindByID(ctx, cert.ParticipantID)
	if err != nil {
		return err
	}
	if participant == nil {
		return fmt.Errorf("%s: %w", cert.ParticipantID, ErrParticipantNotFound)
	}

	event, err := s.events.FindByID(ctx, cert.EventID)
	if err != nil {
		return err
	}
	if event == nil {
		return fmt.Errorf("%s: %w", cert.EventID, ErrEventNotFound)
	}

	cert.ParticipantName = participant.Name
	cert.EventTitle = event.Title
	cert.EventStart = event.StartDate
	cert.EventEnd = event.EndDate
	cert.Venue = event.Venue
	cert.Mode = event.Mode
	return nil
}

// archiveArtifacts best-effort, buffer di record tetap jadi sumber download
func (s *certificateService) archiveArtifacts(ctx context.Context, cert *model.Certificate, artifacts *render.Artifacts, formats []model.ArtifactFormat) {
	if s.archive == nil {
		return
	}
	for _, f := range formats {
		key, err := s.archive.PutArtifact(ctx, cert.CertificateID, f, artifacts.Get(f))
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).
				Str("certificate_id", cert.CertificateID).
				Str("format", string(f)).
				Msg("Failed to archive artifact")
			continue
		}
		switch f {
		case model.FormatPDF:
			cert.CertificateData.PDFObjectKey = &key
		case model.FormatImage:
			cert.CertificateData.ImageObjectKey = &key
		}
	}
}

// Verify endpoint publik. Tidak pernah mengubah status sertifikat.
func (s *certificateService) Verify(ctx context.Context, certificateID, originIP string) (*model.VerifyResponse, error) {
	certificateID = utils.NormalizeCertificateID(certificateID)
	if certificateID == "" {
		return nil, validationError("certificate ID wajib diisi")
	}
	if !utils.IsCertificateIDFormat(certificateID) {
		return nil, ErrCertificateNotFound
	}

	cert, err := s.repo.FindByCertificateID(ctx, certificateID)
	if err != nil {
		return nil, err
	}
	if cert == nil {
		return nil, ErrCertificateNotFound
	}
	if cert.Status == model.StatusRevoked {
		return nil, fmt.Errorf("%w: %w", ErrCertificateNotFound, ErrRevoked)
	}

	now := s.now()
	if cert.ExpiryDate != nil && cert.ExpiryDate.Before(now) {
		return nil, ErrCertificateExpired
	}

	count, err := s.repo.IncrementVerification(ctx, certificateID, now)
	if err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return nil, ErrCertificateNotFound
		}
		return nil, err
	}

	s.Audit(ctx, certificateID, model.AuditEntry{
		Action: model.AuditVerified,
		Note:   "Public verification",
		IP:     originIP,
		At:     now,
	})

	days := daysBetween(cert.IssuedDate, now)
	verified := &model.VerifiedCertificate{
		CertificateID:     cert.CertificateID,
		Status:            cert.Status,
		IssuedDate:        cert.IssuedDate,
		VerificationCount: count,
		Participant:       s.verifiedParticipant(ctx, cert),
		Event:             s.verifiedEvent(ctx, cert),
		Issuer:            s.verifiedIssuer(ctx, cert),
		Skills:            append([]string{}, cert.Skills...),
		Metadata: model.VerificationMetadata{
			DaysSinceIssued: days,
			IsRecent:        days <= recentDays,
			HasExpiry:       cert.ExpiryDate != nil,
		},
		Security: model.VerificationSecurity{
			Verified:        true,
			TamperProof:     true,
			QRCodeValid:     cert.Verification.QRCode != "",
			VerificationURL: cert.Verification.VerificationURL,
		},
	}

	return &model.VerifyResponse{Success: true, Valid: true, Certificate: verified}, nil
}

// verifiedParticipant data peserta terbaru, jatuh ke data di sertifikat jika lookup gagal
func (s *certificateService) verifiedParticipant(ctx context.Context, cert *model.Certificate) model.VerifiedParticipant {
	out := model.VerifiedParticipant{Name: cert.ParticipantName}
	p, err := s.participants.FindByID(ctx, cert.ParticipantID)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("certificate_id", cert.CertificateID).Msg("Participant lookup failed")
	}
	if p != nil {
		out.Email = p.Email
		out.Department = p.Department
	}
	return out
}

func (s *certificateService) verifiedEvent(ctx context.Context, cert *model.Certificate) model.VerifiedEvent {
	out := model.VerifiedEvent{
		Title: cert.EventTitle,
		Dates: model.EventDates{Start: cert.EventStart, End: cert.EventEnd},
		Venue: cert.Venue,
		Mode:  cert.Mode,
	}
	e, err := s.events.FindByID(ctx, cert.EventID)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("certificate_id", cert.CertificateID).Msg("Event lookup failed")
	}
	if e != nil {
		out.Coordinator = e.CoordinatorName
	}
	return out
}

func (s *certificateService) verifiedIssuer(ctx context.Context, cert *model.Certificate) model.VerifiedIssuer {
	if cert.IssuerID == nil {
		return model.VerifiedIssuer{}
	}
	u, err := s.users.FindByID(ctx, *cert.IssuerID)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("certificate_id", cert.CertificateID).Msg("Issuer lookup failed")
	}
	if u == nil {
		return model.VerifiedIssuer{}
	}
	return model.VerifiedIssuer{
		Name:       u.Name,
		Email:      u.Email,
		Role:       string(u.Role),
		Department: u.Department,
	}
}

func (s *certificateService) RecordDownload(ctx context.Context, certificateID, actorID, originIP string) error {
	count, err := s.repo.IncrementDownload(ctx, certificateID, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return ErrCertificateNotFound
		}
		return err
	}

	log.Ctx(ctx).Debug().
		Str("certificate_id", certificateID).
		Str("actor_id", actorID).
		Str("ip", originIP).
		Int("download_count", count).
		Msg("Certificate downloaded")
	return nil
}

// Download mengirim buffer yang ada, atau generate dulu jika buffer format itu kosong
func (s *certificateService) Download(ctx context.Context, certificateID string, format model.ArtifactFormat, actorID, originIP string) (*Artifact, error) {
	formats, err := normalizeFormats([]model.ArtifactFormat{format})
	if err != nil {
		return nil, err
	}
	format = formats[0]

	cert, err := s.load(ctx, certificateID)
	if err != nil {
		return nil, err
	}
	if cert.Status == model.StatusRevoked {
		return nil, ErrCertificateRevoked
	}

	data := cert.CertificateData.Buffer(format)
	if len(data) == 0 {
		cert, err = s.Generate(ctx, cert.CertificateID, formats)
		if err != nil {
			return nil, err
		}
		data = cert.CertificateData.Buffer(format)
	}

	if actorID != "" {
		if err := s.RecordDownload(ctx, cert.CertificateID, actorID, originIP); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("certificate_id", cert.CertificateID).Msg("Failed to record download")
		}
	}

	return &Artifact{
		Data:        data,
		ContentType: format.ContentType(),
		FileName:    cert.CertificateID + format.Extension(),
	}, nil
}

// Cleanup hanya menghapus buffer, status tetap
func (s *certificateService) Cleanup(ctx context.Context, certificateID string) error {
	err := s.repo.ClearData(ctx, utils.NormalizeCertificateID(certificateID))
	if errors.Is(err, repository.ErrNoRows) {
		return ErrCertificateNotFound
	}
	return err
}

func (s *certificateService) UpdateStatus(ctx context.Context, certificateID string, req model.UpdateStatusRequest, actorID, originIP string) (*model.Certificate, error) {
	if !req.Status.Valid() {
		return nil, validationError("status tidak valid: %s", req.Status)
	}

	cert, err := s.load(ctx, certificateID)
	if err != nil {
		return nil, err
	}
	if cert.Status == model.StatusRevoked {
		return nil, ErrCertificateRevoked
	}
	if !cert.Status.CanTransitionTo(req.Status) {
		return nil, validationError("status tidak bisa mundur dari %s ke %s", cert.Status, req.Status)
	}

	if err := s.repo.UpdateStatus(ctx, cert.CertificateID, req.Status); err != nil {
		if !errors.Is(err, repository.ErrNoRows) {
			return nil, err
		}
		// status berubah sejak dibaca
		if err := s.writeConflict(ctx, cert.CertificateID); err != nil {
			return nil, err
		}
		return nil, validationError("status tidak bisa mundur ke %s", req.Status)
	}

	action := model.AuditUpdated
	if req.Status == model.StatusRevoked {
		action = model.AuditRevoked
	}
	entry := model.AuditEntry{
		Action: action,
		Note:   strings.TrimSpace(req.Reason),
		IP:     originIP,
		At:     s.now(),
	}
	if actorID != "" {
		entry.ByUser = &actorID
	}
	s.Audit(ctx, cert.CertificateID, entry)

	log.Ctx(ctx).Info().
		Str("certificate_id", cert.CertificateID).
		Str("status", string(req.Status)).
		Str("actor_id", actorID).
		Msg("Certificate status updated")
	return s.load(ctx, cert.CertificateID)
}

// Audit best-effort: kegagalan hanya dicatat di log
func (s *certificateService) Audit(ctx context.Context, certificateID string, entry model.AuditEntry) {
	if entry.At.IsZero() {
		entry.At = s.now()
	}
	if err := s.repo.AppendAudit(ctx, certificateID, entry); err != nil {
		log.Ctx(ctx).Error().Err(err).
			Str("certificate_id", certificateID).
			Str("action", entry.Action).
			Msg("Failed to append audit entry")
	}
}

func (s *certificateService) Get(ctx context.Context, certificateID string) (*model.Certificate, error) {
	return s.load(ctx, certificateID)
}

func (s *certificateService) ListByParticipant(ctx context.Context, participantID string) ([]*model.Certificate, error) {
	return s.repo.FindByParticipant(ctx, strings.TrimSpace(participantID))
}

func (s *certificateService) ListByEvent(ctx context.Context, eventID string) ([]*model.Certificate, error) {
	return s.repo.FindByEvent(ctx, strings.TrimSpace(eventID))
}

func (s *certificateService) StatusCounts(ctx context.Context) ([]model.StatusCount, error) {
	return s.repo.AggregateStatusCounts(ctx)
}

func (s *certificateService) load(ctx context.Context, certificateID string) (*model.Certificate, error) {
	certificateID = utils.NormalizeCertificateID(certificateID)
	if certificateID == "" {
		return nil, validationError("certificate ID wajib diisi")
	}
	if !utils.IsCertificateIDFormat(certificateID) {
		return nil, ErrCertificateNotFound
	}

	cert, err := s.repo.FindByCertificateID(ctx, certificateID)
	if err != nil {
		return nil, err
	}
	if cert == nil {
		return nil, ErrCertificateNotFound
	}
	return cert, nil
}

// writeConflict cek ulang baris setelah write bersyarat tidak mengenai apa pun.
// Nil berarti sertifikat masih ada dan belum revoked.
func (s *certificateService) writeConflict(ctx context.Context, certificateID string) error {
	current, err := s.repo.FindByCertificateID(ctx, certificateID)
	switch {
	case err != nil:
		return err
	case current == nil:
		return ErrCertificateNotFound
	case current.Status == model.StatusRevoked:
		return ErrCertificateRevoked
	}
	return nil
}

func (s *certificateService) verificationURL(certificateID string) string {
	return fmt.Sprintf("%s/verify/%s", s.baseURL, certificateID)
}

func toView(cert *model.Certificate) render.CertificateView {
	return render.CertificateView{
		CertificateID:   cert.CertificateID,
		ParticipantName: cert.ParticipantName,
		EventTitle:      cert.EventTitle,
		EventStart:      cert.EventStart,
		EventEnd:        cert.EventEnd,
		Venue:           cert.Venue,
		Mode:            cert.Mode,
		Skills:          cert.Skills,
		IssuedDate:      cert.IssuedDate,
		VerificationURL: cert.Verification.VerificationURL,
	}
}

// normalizeFormats default PDF, buang duplikat, tolak format tidak dikenal
func normalizeFormats(formats []model.ArtifactFormat) ([]model.ArtifactFormat, error) {
	if len(formats) == 0 {
		return []model.ArtifactFormat{model.FormatPDF}, nil
	}

	seen := map[model.ArtifactFormat]bool{}
	out := make([]model.ArtifactFormat, 0, len(formats))
	for _, f := range formats {
		f = model.ArtifactFormat(strings.ToLower(strings.TrimSpace(string(f))))
		if f == "png" {
			f = model.FormatImage
		}
		if f != model.FormatPDF && f != model.FormatImage {
			return nil, validationError("format tidak didukung: %s", f)
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

// daysBetween selisih hari kalender (UTC)
func daysBetween(from, to time.Time) int {
	fy, fm, fd := from.UTC().Date()
	ty, tm, td := to.UTC().Date()
	start := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	end := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}
