// Package memory implementasi repository in-memory untuk development dan test.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ahmadqo/event-certificate-service/internal/model"
	"github.com/ahmadqo/event-certificate-service/internal/repository"
	"github.com/google/uuid"
)

var _ repository.CertificateRepository = (*CertificateStore)(nil)

type CertificateStore struct {
	mu    sync.RWMutex
	certs map[string]*model.Certificate
	seq   int64
}

func NewCertificateStore() *CertificateStore {
	return &CertificateStore{certs: make(map[string]*model.Certificate)}
}

func (s *CertificateStore) FindByCertificateID(ctx context.Context, certificateID string) (*model.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cert, ok := s.certs[certificateID]
	if !ok {
		return nil, nil
	}
	return copyCertificate(cert, true), nil
}

func (s *CertificateStore) FindByParticipant(ctx context.Context, participantID string) ([]*model.Certificate, error) {
	return s.filter(func(c *model.Certificate) bool { return c.ParticipantID == participantID }), nil
}

func (s *CertificateStore) FindByEvent(ctx context.Context, eventID string) ([]*model.Certificate, error) {
	return s.filter(func(c *model.Certificate) bool { return c.EventID == eventID }), nil
}

func (s *CertificateStore) filter(match func(*model.Certificate) bool) []*model.Certificate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*model.Certificate{}
	for _, c := range s.certs {
		if match(c) {
			out = append(out, copyCertificate(c, false))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedDate.After(out[j].IssuedDate) })
	return out
}

func (s *CertificateStore) FindByParticipantAndEvent(ctx context.Context, participantID, eventID string) (*model.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.certs {
		if c.ParticipantID == participantID && c.EventID == eventID {
			return copyCertificate(c, true), nil
		}
	}
	return nil, nil
}

func (s *CertificateStore) FindForRegeneration(ctx context.Context, filter model.RegenerationFilter) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := []*model.Certificate{}
	for _, c := range s.certs {
		if filter.EventID != "" && c.EventID != filter.EventID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, c.Status) {
			continue
		}
		matches = append(matches, c)
	}
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.Before(matches[j].CreatedAt)
		}
		return matches[i].CertificateID < matches[j].CertificateID
	})

	ids := make([]string, len(matches))
	for i, c := range matches {
		ids[i] = c.CertificateID
	}
	return ids, nil
}

func (s *CertificateStore) CountByYear(ctx context.Context, year int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, c := range s.certs {
		if c.IssuedDate.Year() == year {
			count++
		}
	}
	return count, nil
}

func (s *CertificateStore) Create(ctx context.Context, cert *model.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.certs[cert.CertificateID]; exists {
		return repository.ErrDuplicate
	}
	for _, c := range s.certs {
		if c.ParticipantID == cert.ParticipantID && c.EventID == cert.EventID {
			return repository.ErrDuplicate
		}
	}

	stored := copyCertificate(cert, true)
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	s.seq++
	// urutan insert dijaga supaya FindForRegeneration stabil
	stored.CreatedAt = time.Now().Add(time.Duration(s.seq))
	stored.UpdatedAt = stored.CreatedAt
	stored.AuditLog = nil
	s.certs[cert.CertificateID] = stored
	return nil
}

func (s *CertificateStore) SaveArtifacts(ctx context.Context, cert *model.Certificate) (model.CertificateStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.certs[cert.CertificateID]
	if !ok || c.Status == model.StatusRevoked {
		return "", repository.ErrNoRows
	}

	c.ParticipantName = cert.ParticipantName
	c.EventTitle = cert.EventTitle
	c.EventStart = cert.EventStart
	c.EventEnd = cert.EventEnd
	c.Venue = cert.Venue
	c.Mode = cert.Mode
	if c.Status == model.StatusDraft {
		c.Status = model.StatusGenerated
	}
	c.Verification.QRCode = cert.Verification.QRCode

	data := cert.CertificateData
	data.PDFBuffer = append([]byte(nil), cert.CertificateData.PDFBuffer...)
	data.ImageBuffer = append([]byte(nil), cert.CertificateData.ImageBuffer...)
	data.GeneratedAt = copyTime(cert.CertificateData.GeneratedAt)
	c.CertificateData = data
	c.UpdatedAt = time.Now()
	return c.Status, nil
}

func (s *CertificateStore) UpdateStatus(ctx context.Context, certificateID string, status model.CertificateStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.certs[certificateID]
	if !ok || !c.Status.CanTransitionTo(status) {
		return repository.ErrNoRows
	}
	c.Status = status
	c.UpdatedAt = time.Now()
	return nil
}

func (s *CertificateStore) ClearData(ctx context.Context, certificateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.certs[certificateID]
	if !ok {
		return repository.ErrNoRows
	}
	c.CertificateData.PDFBuffer = nil
	c.CertificateData.ImageBuffer = nil
	c.CertificateData.FileSize = nil
	c.CertificateData.ContentType = nil
	c.CertificateData.FileName = nil
	c.CertificateData.GeneratedAt = nil
	c.UpdatedAt = time.Now()
	return nil
}

func (s *CertificateStore) IncrementVerification(ctx context.Context, certificateID string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.certs[certificateID]
	if !ok {
		return 0, repository.ErrNoRows
	}
	c.VerificationCount++
	c.LastVerifiedAt = &at
	c.Verification.Verified = true
	return c.VerificationCount, nil
}

func (s *CertificateStore) IncrementDownload(ctx context.Context, certificateID string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.certs[certificateID]
	if !ok {
		return 0, repository.ErrNoRows
	}
	c.DownloadCount++
	c.LastDownloaded = &at
	return c.DownloadCount, nil
}

func (s *CertificateStore) AppendAudit(ctx context.Context, certificateID string, entry model.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.certs[certificateID]
	if !ok {
		return repository.ErrNoRows
	}
	s.seq++
	entry.ID = s.seq
	c.AuditLog = append(c.AuditLog, entry)
	return nil
}

func (s *CertificateStore) AggregateStatusCounts(ctx context.Context) ([]model.StatusCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byStatus := map[model.CertificateStatus]int64{}
	for _, c := range s.certs {
		byStatus[c.Status]++
	}

	counts := make([]model.StatusCount, 0, len(byStatus))
	for status, n := range byStatus {
		counts = append(counts, model.StatusCount{Status: status, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Status < counts[j].Status })
	return counts, nil
}

func containsStatus(list []model.CertificateStatus, s model.CertificateStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// copyCertificate salinan supaya data di store tidak bisa diubah dari luar
func copyCertificate(c *model.Certificate, withBuffers bool) *model.Certificate {
	cp := *c
	cp.Skills = append([]string(nil), c.Skills...)
	cp.AuditLog = append([]model.AuditEntry(nil), c.AuditLog...)
	cp.ExpiryDate = copyTime(c.ExpiryDate)
	cp.LastVerifiedAt = copyTime(c.LastVerifiedAt)
	cp.LastDownloaded = copyTime(c.LastDownloaded)
	cp.CertificateData.GeneratedAt = copyTime(c.CertificateData.GeneratedAt)
	if withBuffers {
		cp.CertificateData.PDFBuffer = append([]byte(nil), c.CertificateData.PDFBuffer...)
		cp.CertificateData.ImageBuffer = append([]byte(nil), c.CertificateData.ImageBuffer...)
	} else {
		cp.CertificateData.PDFBuffer = nil
		cp.CertificateData.ImageBuffer = nil
	}
	return &cp
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
