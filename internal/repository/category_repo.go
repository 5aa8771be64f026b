package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/lifegpa-api/internal/models"
)

// CategoryRepository defines data operations for GPA categories.
type CategoryRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.GPACategory, error)
	UpsertBatch(ctx context.Context, items []models.GPACategory) (int64, error)
}

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository instantiates the repository.
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

// ListByUser returns the categories owned by userID in storage order.
func (r *categoryRepository) ListByUser(ctx context.Context, userID string) ([]models.GPACategory, error) {
	var categories []models.GPACategory
	if err := r.db.WithContext(ctx).
		Select("id", "user_id", "category_name").
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&categories).Error; err != nil {
		return nil, err
	}

	return categories, nil
}

// UpsertBatch creates the categories that do not exist yet for their user and
// returns how many rows were inserted.
func (r *categoryRepository) UpsertBatch(ctx context.Context, items []models.GPACategory) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range items {
			item := items[i]
			item.CategoryName = strings.TrimSpace(item.CategoryName)

			result := tx.Where(models.GPACategory{UserID: item.UserID, CategoryName: item.CategoryName}).
				FirstOrCreate(&item)
			if result.Error != nil {
				return result.Error
			}
			affected += result.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return affected, nil
}
