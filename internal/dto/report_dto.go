package dto

import (
	"time"

	"github.com/noah-isme/lifegpa-api/internal/models"
)

// ReportEntryResponse serializes a single graded category.
type ReportEntryResponse struct {
	CategoryID  uint   `json:"category_id"`
	Grade       string `json:"grade"`
	Description string `json:"description"`
}

// ReportCardResponse is returned to API clients when viewing stored reports.
type ReportCardResponse struct {
	ID        uint                  `json:"id"`
	UserID    string                `json:"user_id"`
	Entries   []ReportEntryResponse `json:"entries"`
	CreatedAt time.Time             `json:"created_at"`
}

// SeedCategoriesRequest seeds life categories for a user in non-production setups.
type SeedCategoriesRequest struct {
	UserID string   `json:"user_id" validate:"required"`
	Names  []string `json:"names" validate:"required,min=1,dive,required,max=128"`
}

// NewReportEntryResponses converts stored entries into DTOs.
func NewReportEntryResponses(entries []models.ReportEntry) []ReportEntryResponse {
	responses := make([]ReportEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, ReportEntryResponse{
			CategoryID:  entry.CategoryID,
			Grade:       entry.Grade,
			Description: entry.Description,
		})
	}
	return responses
}

// NewReportCardResponse converts a ReportCard model into a DTO.
func NewReportCardResponse(model models.ReportCard) (ReportCardResponse, error) {
	entries, err := model.Entries()
	if err != nil {
		return ReportCardResponse{}, err
	}

	return ReportCardResponse{
		ID:        model.ID,
		UserID:    model.UserID,
		Entries:   NewReportEntryResponses(entries),
		CreatedAt: model.CreatedAt,
	}, nil
}
