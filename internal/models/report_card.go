package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// ReportEntry is one graded category inside a report card.
type ReportEntry struct {
	CategoryID  uint   `json:"category_id"`
	Grade       string `json:"grade"`
	Description string `json:"description"`
}

// ReportCard stores a full set of category grades captured at one point in time.
type ReportCard struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	UserID         string         `gorm:"size:64;not null;index;uniqueIndex:idx_report_cards_user_key,priority:1" json:"user_id"`
	ReportData     datatypes.JSON `gorm:"type:json;not null" json:"report_data"`
	IdempotencyKey *string        `gorm:"size:128;uniqueIndex:idx_report_cards_user_key,priority:2" json:"-"`
	CreatedAt      time.Time      `json:"created_at"`
}

// TableName pins the table name used by the reporting views.
func (ReportCard) TableName() string {
	return "report_cards"
}

// NewReportCard encodes entries into a report card for the given user.
func NewReportCard(userID string, entries []ReportEntry) (ReportCard, error) {
	if entries == nil {
		entries = []ReportEntry{}
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return ReportCard{}, err
	}
	return ReportCard{UserID: userID, ReportData: datatypes.JSON(payload)}, nil
}

// Entries decodes the stored report data.
func (r ReportCard) Entries() ([]ReportEntry, error) {
	if len(r.ReportData) == 0 {
		return []ReportEntry{}, nil
	}
	var entries []ReportEntry
	if err := json.Unmarshal(r.ReportData, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
