package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lifegpa-api/internal/models"
	"github.com/noah-isme/lifegpa-api/internal/repository"
)

func TestReportServiceCachesListing(t *testing.T) {
	db := newTestDB(t)
	reports := repository.NewReportCardRepository(db)
	ctx := context.Background()

	card, err := models.NewReportCard("u1", []models.ReportEntry{{CategoryID: 1, Grade: string(models.GradeA)}})
	require.NoError(t, err)
	require.NoError(t, reports.Create(ctx, &card))

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	svc := NewReportService(reports, client, time.Minute, testLogger())

	first, err := svc.ListForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Equal(t, "A", first[0].Entries[0].Grade)
	require.True(t, server.Exists(reportCacheKey("u1")))

	second, err := models.NewReportCard("u1", []models.ReportEntry{{CategoryID: 1, Grade: string(models.GradeD)}})
	require.NoError(t, err)
	require.NoError(t, reports.Create(ctx, &second))

	cached, err := svc.ListForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, cached, 1)

	svc.Invalidate(ctx, "u1")
	require.False(t, server.Exists(reportCacheKey("u1")))

	fresh, err := svc.ListForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, fresh, 2)
}

func TestReportServiceWithoutCache(t *testing.T) {
	db := newTestDB(t)
	svc := NewReportService(repository.NewReportCardRepository(db), nil, time.Minute, testLogger())

	items, err := svc.ListForUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Empty(t, items)

	svc.Invalidate(context.Background(), "u1")

	_, err = svc.ListForUser(context.Background(), "")
	var authErr *AuthorizationError
	require.ErrorAs(t, err, &authErr)
}
