package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/lifegpa-api/internal/dto"
	"github.com/noah-isme/lifegpa-api/internal/models"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.GPACategory{}, &models.ReportCard{}))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedCategories(t *testing.T, db *gorm.DB, userID string, names ...string) []models.GPACategory {
	t.Helper()
	rows := make([]models.GPACategory, 0, len(names))
	for _, name := range names {
		row := models.GPACategory{UserID: userID, CategoryName: name}
		require.NoError(t, db.Create(&row).Error)
		rows = append(rows, row)
	}
	return rows
}

type stubCategoryRepo struct {
	mu      sync.Mutex
	rows    []models.GPACategory
	err     error
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (r *stubCategoryRepo) ListByUser(ctx context.Context, userID string) ([]models.GPACategory, error) {
	r.mu.Lock()
	r.calls++
	rows, err, entered, release := r.rows, r.err, r.entered, r.release
	r.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		<-release
	}
	if err != nil {
		return nil, err
	}

	out := make([]models.GPACategory, 0, len(rows))
	for _, row := range rows {
		if row.UserID == userID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *stubCategoryRepo) UpsertBatch(ctx context.Context, items []models.GPACategory) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, items...)
	return int64(len(items)), nil
}

func (r *stubCategoryRepo) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type stubReportRepo struct {
	mu      sync.Mutex
	created []models.ReportCard
	err     error
	entered chan struct{}
	release chan struct{}
}

func (r *stubReportRepo) Create(ctx context.Context, report *models.ReportCard) error {
	if r.entered != nil {
		r.entered <- struct{}{}
	}
	if r.release != nil {
		<-r.release
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	report.ID = uint(len(r.created) + 1)
	r.created = append(r.created, *report)
	return nil
}

func (r *stubReportRepo) FindByIdempotencyKey(ctx context.Context, userID, key string) (models.ReportCard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, report := range r.created {
		if report.UserID == userID && report.IdempotencyKey != nil && *report.IdempotencyKey == key {
			return report, nil
		}
	}
	return models.ReportCard{}, gorm.ErrRecordNotFound
}

func (r *stubReportRepo) ListByUser(ctx context.Context, userID string) ([]models.ReportCard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.ReportCard, 0)
	for _, report := range r.created {
		if report.UserID == userID {
			out = append(out, report)
		}
	}
	return out, nil
}

func (r *stubReportRepo) createdCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.created)
}

type recordingNavigator struct {
	mu     sync.Mutex
	routes []string
}

func (n *recordingNavigator) Navigate(route string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = append(n.routes, route)
}

func (n *recordingNavigator) visited() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.routes...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []dto.BaselineSubmittedEvent
	err    error
}

func (p *recordingPublisher) PublishBaselineSubmitted(_ context.Context, event dto.BaselineSubmittedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

var errBackendDown = errors.New("backend exploded")
