package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/lifegpa-api/internal/models"
)

func TestReportCardRepositoryCreateAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReportCardRepository(db)
	ctx := context.Background()

	first, err := models.NewReportCard("user-a", []models.ReportEntry{{CategoryID: 1, Grade: "A"}})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, &first))
	require.NotZero(t, first.ID)

	second, err := models.NewReportCard("user-a", []models.ReportEntry{{CategoryID: 1, Grade: "B"}})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, &second))

	other, err := models.NewReportCard("user-b", nil)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, &other))

	reports, err := repo.ListByUser(ctx, "user-a")
	require.NoError(t, err)
	require.Len(t, reports, 2)
	require.Equal(t, second.ID, reports[0].ID)

	entries, err := reports[0].Entries()
	require.NoError(t, err)
	require.Equal(t, "B", entries[0].Grade)
}

func TestReportCardRepositoryIdempotencyKeyIsUniquePerUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReportCardRepository(db)
	ctx := context.Background()
	key := "retry-1"

	report, err := models.NewReportCard("user-a", nil)
	require.NoError(t, err)
	report.IdempotencyKey = &key
	require.NoError(t, repo.Create(ctx, &report))

	found, err := repo.FindByIdempotencyKey(ctx, "user-a", key)
	require.NoError(t, err)
	require.Equal(t, report.ID, found.ID)

	duplicate, err := models.NewReportCard("user-a", nil)
	require.NoError(t, err)
	duplicate.IdempotencyKey = &key
	require.Error(t, repo.Create(ctx, &duplicate))

	otherUser, err := models.NewReportCard("user-b", nil)
	require.NoError(t, err)
	otherUser.IdempotencyKey = &key
	require.NoError(t, repo.Create(ctx, &otherUser))

	_, err = repo.FindByIdempotencyKey(ctx, "user-a", "missing")
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}
