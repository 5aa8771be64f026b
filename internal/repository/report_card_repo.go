package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/lifegpa-api/internal/models"
)

// ReportCardRepository defines data operations for report cards.
type ReportCardRepository interface {
	Create(ctx context.Context, report *models.ReportCard) error
	FindByIdempotencyKey(ctx context.Context, userID, key string) (models.ReportCard, error)
	ListByUser(ctx context.Context, userID string) ([]models.ReportCard, error)
}

type reportCardRepository struct {
	db *gorm.DB
}

// NewReportCardRepository instantiates the repository.
func NewReportCardRepository(db *gorm.DB) ReportCardRepository {
	return &reportCardRepository{db: db}
}

func (r *reportCardRepository) Create(ctx context.Context, report *models.ReportCard) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *reportCardRepository) FindByIdempotencyKey(ctx context.Context, userID, key string) (models.ReportCard, error) {
	var report models.ReportCard
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("idempotency_key = ?", key).
		First(&report).Error; err != nil {
		return models.ReportCard{}, err
	}

	return report, nil
}

func (r *reportCardRepository) ListByUser(ctx context.Context, userID string) ([]models.ReportCard, error) {
	var reports []models.ReportCard
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&reports).Error; err != nil {
		return nil, err
	}

	return reports, nil
}
