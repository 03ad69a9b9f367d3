package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ahmadqo/event-certificate-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegenerateAll_IsolatesFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	participants := f.addParticipants(10)
	certIDs := make([]string, len(participants))
	for i, p := range participants {
		certIDs[i] = f.createGenerated(t, p, "evt-1").CertificateID
	}
	callsBefore := f.engine.Calls()

	// peserta item #5 hilang dari modul registrasi
	f.directory.DeleteParticipant(participants[4])

	report, err := f.regen.RegenerateAll(ctx, nil, 3)
	require.NoError(t, err)

	assert.Equal(t, model.BulkRegenerateAll, report.Operation)
	assert.Equal(t, 10, report.TotalCertificates)
	assert.Equal(t, 9, report.Processed)
	assert.Equal(t, 1, report.ErrorCount)
	assert.Equal(t, 90.0, report.SuccessRate)
	assert.False(t, report.Aborted)

	require.Len(t, report.Errors, 1)
	assert.Equal(t, certIDs[4], report.Errors[0].CertificateID)
	assert.Contains(t, report.Errors[0].Error, "peserta tidak ditemukan")

	processed := map[string]bool{}
	for _, r := range report.Results {
		processed[r.CertificateID] = true
		assert.Equal(t, model.StatusGenerated, r.Status)
	}
	for i, id := range certIDs {
		if i == 4 {
			continue
		}
		assert.True(t, processed[id], "item %d should be processed", i+1)
		assert.Equal(t, []string{model.AuditRegenerated}, auditActions(f.stored(t, id)))
	}
	assert.Empty(t, f.stored(t, certIDs[4]).AuditLog)

	assert.EqualValues(t, 9, f.engine.Calls()-callsBefore)
	assert.LessOrEqual(t, f.engine.Peak(), int32(3))
}

func TestRegenerateAll_RenderFailureDoesNotAbortLaterBatches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	participants := f.addParticipants(6)
	var certIDs []string
	for _, p := range participants {
		certIDs = append(certIDs, f.createGenerated(t, p, "evt-1").CertificateID)
	}
	f.engine.FailFor[certIDs[0]] = true
	f.engine.FailFor[certIDs[1]] = true
	f.engine.FailFor[certIDs[2]] = true

	report, err := f.regen.RegenerateAll(ctx, []model.ArtifactFormat{model.FormatPDF, model.FormatImage}, 3)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Processed)
	assert.Equal(t, 3, report.ErrorCount)
	assert.Equal(t, 50.0, report.SuccessRate)
	for _, e := range report.Errors {
		assert.Contains(t, e.Error, "render engine error")
	}
	assert.NotEmpty(t, f.stored(t, certIDs[5]).CertificateData.ImageBuffer)
}

func TestRegenerateAll_SelectsGeneratedAndIssuedOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addParticipants(4)

	draft := f.create(t, p[0], "evt-1")
	generated := f.createGenerated(t, p[1], "evt-1")
	issued := f.createGenerated(t, p[2], "evt-1")
	revoked := f.createGenerated(t, p[3], "evt-1")

	_, err := f.svc.UpdateStatus(ctx, issued.CertificateID, model.UpdateStatusRequest{Status: model.StatusIssued}, "u-1", "")
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, revoked.CertificateID, model.UpdateStatusRequest{Status: model.StatusRevoked}, "u-1", "")
	require.NoError(t, err)

	report, err := f.regen.RegenerateAll(ctx, nil, 0)
	require.NoError(t, err)

	ids := []string{}
	for _, r := range report.Results {
		ids = append(ids, r.CertificateID)
	}
	assert.ElementsMatch(t, []string{generated.CertificateID, issued.CertificateID}, ids)
	assert.Equal(t, model.StatusDraft, f.stored(t, draft.CertificateID).Status)
	assert.Equal(t, model.StatusIssued, f.stored(t, issued.CertificateID).Status)
}

func TestRegenerateByEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.directory.PutEvent(model.Event{
		ID: "evt-2", Title: "Data Engineering Bootcamp",
		StartDate: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
	})
	inEvent := f.createGenerated(t, "p-1", "evt-2")
	f.createGenerated(t, "p-1", "evt-1")

	report, err := f.regen.RegenerateByEvent(ctx, "evt-2", nil, 0)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, inEvent.CertificateID, report.Results[0].CertificateID)
	assert.Equal(t, model.BulkRegenerateEvent, report.Operation)

	_, err = f.regen.RegenerateByEvent(ctx, " ", nil, 0)
	require.ErrorIs(t, err, ErrValidation)
}

func TestRegenerate_EmptySelection(t *testing.T) {
	f := newFixture(t)

	report, err := f.regen.RegenerateAll(context.Background(), nil, 0)
	require.NoError(t, err)
	assert.Zero(t, report.TotalCertificates)
	assert.Zero(t, report.SuccessRate)
	assert.NotNil(t, report.Results)
	assert.NotNil(t, report.Errors)
}

func TestRun_AbortsOnlyBetweenBatches(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.regen.cooldown = time.Hour
	ids := []string{"A", "B", "C", "D", "E", "F"}

	var calls atomic.Int32
	report := f.regen.run(ctx, "test", ids, 3, f.regen.cooldown, func(ctx context.Context, id string) (model.BulkResult, error) {
		calls.Add(1)
		cancel()
		// anggota batch tidak ikut dibatalkan
		assert.NoError(t, ctx.Err())
		return model.BulkResult{CertificateID: id}, nil
	})

	assert.True(t, report.Aborted)
	assert.EqualValues(t, 3, calls.Load())
	assert.Equal(t, 3, report.Processed)
	assert.Equal(t, 6, report.TotalCertificates)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := f.regen.run(ctx, "test", []string{"A"}, 3, 0, func(ctx context.Context, id string) (model.BulkResult, error) {
		t.Error("no member should run")
		return model.BulkResult{}, nil
	})
	assert.True(t, report.Aborted)
	assert.Zero(t, report.Processed)
}

func TestRun_CooldownBetweenBatches(t *testing.T) {
	f := newFixture(t)

	started := time.Now()
	report := f.regen.run(context.Background(), "test", []string{"A", "B", "C"}, 1, 20*time.Millisecond,
		func(ctx context.Context, id string) (model.BulkResult, error) {
			return model.BulkResult{CertificateID: id}, nil
		})

	assert.Equal(t, 3, report.Processed)
	assert.GreaterOrEqual(t, time.Since(started), 40*time.Millisecond)
	assert.Equal(t, []model.BulkResult{{CertificateID: "A"}, {CertificateID: "B"}, {CertificateID: "C"}}, report.Results)
}

func TestForceRegenerate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cert := f.createGenerated(t, "p-1", "evt-1")
	callsBefore := f.engine.Calls()

	regenerated, err := f.regen.ForceRegenerate(ctx, cert.CertificateID, []model.ArtifactFormat{model.FormatImage}, "u-1", "10.0.0.1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.engine.Calls()-callsBefore)

	stored := f.stored(t, cert.CertificateID)
	assert.Empty(t, stored.CertificateData.PDFBuffer, "old buffers are cleared")
	assert.NotEmpty(t, stored.CertificateData.ImageBuffer)
	assert.Equal(t, regenerated.CertificateData.ImageBuffer, stored.CertificateData.ImageBuffer)
	assert.Equal(t, []string{model.AuditForceRegenerated}, auditActions(stored))
	require.NotNil(t, stored.AuditLog[0].ByUser)
	assert.Equal(t, "u-1", *stored.AuditLog[0].ByUser)

	_, err = f.regen.ForceRegenerate(ctx, "CERT-2024-404", nil, "u-1", "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRunBulk(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cert := f.createGenerated(t, "p-1", "evt-1")

	_, err := f.regen.RunBulk(ctx, model.BulkRequest{Operation: "delete_all"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = f.regen.RunBulk(ctx, model.BulkRequest{Operation: model.BulkRegenerateAll, BatchSize: 500})
	require.ErrorIs(t, err, ErrValidation)

	_, err = f.regen.RunBulk(ctx, model.BulkRequest{Operation: model.BulkRegenerateEvent})
	require.ErrorIs(t, err, ErrValidation)

	report, err := f.regen.RunBulk(ctx, model.BulkRequest{Operation: model.BulkRegenerateEvent, EventID: "evt-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)

	report, err = f.regen.RunBulk(ctx, model.BulkRequest{Operation: model.BulkCleanupAll})
	require.NoError(t, err)
	assert.Equal(t, model.BulkCleanupAll, report.Operation)
	assert.Equal(t, 1, report.Processed)

	stored := f.stored(t, cert.CertificateID)
	assert.False(t, stored.CertificateData.HasBuffers())
	assert.Equal(t, model.StatusGenerated, stored.Status)
}
