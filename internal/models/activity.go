package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	// ActivityOutcomeSucceeded marks a mutation the backend accepted.
	ActivityOutcomeSucceeded = "succeeded"
	// ActivityOutcomeFailed marks a mutation that was rejected or could not be sent.
	ActivityOutcomeFailed = "failed"
	// ActivityOutcomeCancelled marks a mutation the user declined to confirm.
	ActivityOutcomeCancelled = "cancelled"
)

// ActivityLog captures every mutation attempted through the console.
type ActivityLog struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	Action        string            `gorm:"size:64;not null;index" json:"action"`
	EntityType    string            `gorm:"size:64;not null;index" json:"entity_type"`
	EntityID      *uint             `json:"entity_id"`
	Outcome       string            `gorm:"size:16;not null" json:"outcome"`
	Detail        string            `gorm:"type:text" json:"detail"`
	CorrelationID string            `gorm:"size:64" json:"correlation_id"`
	Metadata      datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt     time.Time         `json:"created_at"`
}
