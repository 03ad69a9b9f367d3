package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ahmadqo/event-certificate-service/internal/config"
	"github.com/ahmadqo/event-certificate-service/internal/model"
	"github.com/ahmadqo/event-certificate-service/internal/render"
	"github.com/ahmadqo/event-certificate-service/internal/render/rendertest"
	"github.com/ahmadqo/event-certificate-service/internal/repository"
	"github.com/ahmadqo/event-certificate-service/internal/repository/memory"
	"github.com/ahmadqo/event-certificate-service/internal/utils"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://certs.example.com"

var testApproverConfig = config.ApproverConfig{
	TitlePrefix:        "Dr.",
	FallbackName:       "Head of Department",
	FallbackDepartment: "Academic Affairs",
}

type fixture struct {
	certs     *memory.CertificateStore
	directory *memory.DirectoryStore
	users     *memory.UserStore
	approvers *memory.ApproverStore
	engine    *rendertest.Engine

	approverSvc *approverService
	svc         *certificateService
	regen       *regenerationService

	now time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithRepo(t, nil)
}

// newFixtureWithRepo wrap membungkus certificate repository, misalnya untuk menyuntik error
func newFixtureWithRepo(t *testing.T, wrap func(repository.CertificateRepository) repository.CertificateRepository) *fixture {
	t.Helper()

	f := &fixture{
		certs:     memory.NewCertificateStore(),
		directory: memory.NewDirectoryStore(),
		users:     memory.NewUserStore(),
		approvers: memory.NewApproverStore(),
		engine:    rendertest.New(),
		now:       time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
	}

	var certRepo repository.CertificateRepository = f.certs
	if wrap != nil {
		certRepo = wrap(certRepo)
	}

	renderer, err := render.NewRenderer(f.engine, render.Options{Timeout: 5 * time.Second})
	require.NoError(t, err)

	f.approverSvc = NewApproverService(f.approvers, testApproverConfig).(*approverService)
	f.approverSvc.now = f.clock

	f.svc = NewCertificateService(certRepo, f.directory, f.directory.Events(), f.users,
		f.approverSvc, utils.NewQREncoder(128), renderer, nil, testBaseURL+"/").(*certificateService)
	f.svc.now = f.clock

	f.regen = NewRegenerationService(certRepo, f.svc, config.BulkConfig{BatchSize: 3}).(*regenerationService)

	f.directory.PutEvent(model.Event{
		ID:              "evt-1",
		Title:           "Cloud Native Workshop",
		StartDate:       time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC),
		Venue:           "Auditorium A",
		Mode:            "offline",
		CoordinatorName: "Budi Santoso",
		Skills:          []string{"Kubernetes", "Go"},
	})
	f.directory.PutParticipant(model.Participant{
		ID: "p-1", Name: "Siti Nurhaliza", Email: "siti@example.com", Department: "Informatics",
	})
	f.users.Put(model.User{
		ID: "u-1", Name: "Andi Pratama", Email: "andi@example.com",
		Role: model.RoleCoordinator, Department: "Informatics", IsActive: true,
	})

	return f
}

func (f *fixture) clock() time.Time {
	return f.now
}

// addParticipants menambah peserta p-01..p-n
func (f *fixture) addParticipants(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("p-%02d", i+1)
		f.directory.PutParticipant(model.Participant{
			ID: ids[i], Name: fmt.Sprintf("Participant %02d", i+1), Email: ids[i] + "@example.com",
		})
	}
	return ids
}

func (f *fixture) create(t *testing.T, participantID, eventID string) *model.Certificate {
	t.Helper()
	cert, created, err := f.svc.CreateFromCompletion(context.Background(), model.CreateCertificateRequest{
		ParticipantID: participantID,
		EventID:       eventID,
		IssuerID:      "u-1",
	})
	require.NoError(t, err)
	require.True(t, created)
	return cert
}

func (f *fixture) createGenerated(t *testing.T, participantID, eventID string) *model.Certificate {
	t.Helper()
	cert := f.create(t, participantID, eventID)
	cert, err := f.svc.Generate(context.Background(), cert.CertificateID, nil)
	require.NoError(t, err)
	return cert
}

func (f *fixture) stored(t *testing.T, certificateID string) *model.Certificate {
	t.Helper()
	cert, err := f.certs.FindByCertificateID(context.Background(), certificateID)
	require.NoError(t, err)
	require.NotNil(t, cert)
	return cert
}

func auditActions(cert *model.Certificate) []string {
	actions := make([]string, len(cert.AuditLog))
	for i, e := range cert.AuditLog {
		actions[i] = e.Action
	}
	return actions
}
