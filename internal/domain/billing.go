package domain

import "time"

// BillingEventRecord marks a webhook event as processed. Records outlive
// account deletion so that a redelivered event cannot restore a plan.
type BillingEventRecord struct {
	ID         string    `gorm:"type:varchar(128);primaryKey"`
	UserID     string    `gorm:"type:varchar(64);not null;index:ix_billing_user_occurred,priority:1"`
	Type       string    `gorm:"type:varchar(64);not null"`
	OccurredAt time.Time `gorm:"not null;index:ix_billing_user_occurred,priority:2"`
	// Applied is false for events that arrived after a newer one.
	Applied   bool      `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (BillingEventRecord) TableName() string { return "billing_events" }
