package database

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmadqo/event-certificate-service/internal/config"
	"github.com/ahmadqo/event-certificate-service/internal/model"
	"github.com/ahmadqo/event-certificate-service/internal/repository/memory"
)

var seedConfig = config.ApproverConfig{FallbackName: "Head of Department", FallbackDepartment: "Academic Affairs"}

func TestSeedFallbackApprover_CreatesWhenEmpty(t *testing.T) {
	store := memory.NewApproverStore()
	seeder := NewSeeder(store, seedConfig)

	require.NoError(t, seeder.SeedFallbackApprover(context.Background()))
	require.NoError(t, seeder.SeedFallbackApprover(context.Background()))

	all, err := store.FindAll(context.Background(), model.RoleApprover)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Head of Department", all[0].Name)
	assert.True(t, all[0].IsActive)
	assert.Equal(t, 1, store.ActiveCount(model.RoleApprover))
}

func TestSeedFallbackApprover_SkipsWhenAnyApproverExists(t *testing.T) {
	store := memory.NewApproverStore()
	require.NoError(t, store.Create(context.Background(), &model.Approver{
		ID: uuid.New(), Name: "Rina Wijaya", Role: model.RoleApprover,
	}))

	require.NoError(t, NewSeeder(store, seedConfig).SeedFallbackApprover(context.Background()))

	all, err := store.FindAll(context.Background(), model.RoleApprover)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Rina Wijaya", all[0].Name)
	assert.Equal(t, 0, store.ActiveCount(model.RoleApprover))
}
