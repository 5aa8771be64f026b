package dto

import "time"

// CategoryResponse is the identifier/name pair rendered for each life category.
type CategoryResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// BaselineStepView is the full state of a user's baseline step as seen by clients.
type BaselineStepView struct {
	Status           string             `json:"status"`
	Categories       []CategoryResponse `json:"categories"`
	Grades           map[uint]string    `json:"grades"`
	Descriptions     map[uint]string    `json:"descriptions"`
	// DescriptionsHTML holds the descriptions escaped for HTML rendering.
	DescriptionsHTML map[uint]string    `json:"descriptions_html,omitempty"`
	Ready            bool               `json:"ready"`
	Error            string             `json:"error,omitempty"`
	LoadError        string             `json:"load_error,omitempty"`
	Redirect         string             `json:"redirect,omitempty"`
	ReportID         *uint              `json:"report_id,omitempty"`
}

// GradeUpdateRequest selects a grade for one category.
type GradeUpdateRequest struct {
	Grade string `json:"grade" validate:"required,oneof=A A- AB B+ B B- BC C+ C D F"`
}

// DescriptionUpdateRequest sets the optional free text for one category.
type DescriptionUpdateRequest struct {
	Description string `json:"description" validate:"max=2000"`
}

// GradeOptionsResponse lists the grades clients may offer.
type GradeOptionsResponse struct {
	Grades []string `json:"grades"`
}

// BaselineSubmittedEvent is published after a baseline report is stored.
type BaselineSubmittedEvent struct {
	ReportID    uint                  `json:"report_id"`
	UserID      string                `json:"user_id"`
	Entries     []ReportEntryResponse `json:"entries"`
	SubmittedAt time.Time             `json:"submitted_at"`
}
