package models

import "time"

// ReportReason is the closed enum of abuse-report reasons.
type ReportReason string

const (
	ReasonSpam           ReportReason = "spam"
	ReasonInappropriate  ReportReason = "inappropriate"
	ReasonHarassment     ReportReason = "harassment"
	ReasonMisinformation ReportReason = "misinformation"
	ReasonCopyright      ReportReason = "copyright"
	ReasonOther          ReportReason = "other"
)

// Valid reports whether r is a member of the reason enum.
func (r ReportReason) Valid() bool {
	switch r {
	case ReasonSpam, ReasonInappropriate, ReasonHarassment, ReasonMisinformation, ReasonCopyright, ReasonOther:
		return true
	}
	return false
}

// ReportStatus is the resolution lifecycle of a single report.
type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportResolved  ReportStatus = "resolved"
	ReportDismissed ReportStatus = "dismissed"
)

// Report is a user-filed abuse complaint attached to a post. Rows are never
// deleted; dismissed and resolved reports stay in the history for audit.
type Report struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	PostID       uint         `gorm:"index;not null" json:"post_id"`
	ReporterID   uint         `gorm:"index;not null" json:"reporter_id"`
	Reason       ReportReason `gorm:"size:20;not null" json:"reason"`
	Description  string       `gorm:"size:500" json:"description,omitempty"`
	Status       ReportStatus `gorm:"size:16;default:'pending';index" json:"status"`
	ResolvedByID *uint        `json:"resolved_by_id,omitempty"`
	ResolvedAt   *time.Time   `json:"resolved_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`

	Reporter User `gorm:"foreignKey:ReporterID" json:"reporter,omitempty"`
}
