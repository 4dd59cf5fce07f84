package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	ActionCreate     = "create"
	ActionUpdate     = "update"
	ActionDelete     = "delete"
	ActionTransition = "transition"
	ActionExpire     = "expire"
)

// AuditLog is one append-only activity record.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	ActorID    string            `gorm:"type:varchar(64);not null;index" json:"actorId"`
	ActorRole  string            `gorm:"type:varchar(32);not null" json:"actorRole"`
	Action     string            `gorm:"type:varchar(32);not null;index" json:"action"`
	EntityType string            `gorm:"type:varchar(64);not null;index:idx_audit_logs_entity" json:"entityType"`
	EntityID   string            `gorm:"type:varchar(64);not null;index:idx_audit_logs_entity" json:"entityId"`
	Summary    string            `gorm:"type:text;not null" json:"summary"`
	Details    datatypes.JSONMap `json:"details,omitempty"`
	RequestID  *string           `gorm:"type:varchar(64)" json:"requestId,omitempty"`
	IPAddress  *string           `gorm:"type:varchar(64)" json:"ipAddress,omitempty"`
	UserAgent  *string           `gorm:"type:text" json:"userAgent,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;index" json:"createdAt"`
}

func (AuditLog) TableName() string { return "audit_logs" }

// Entry is what a service hands to Record after a successful mutation.
// Before and After are entity snapshots; either may be nil.
type Entry struct {
	ActorID    string
	ActorRole  string
	Action     string
	EntityType string
	EntityID   string
	Summary    string
	Details    map[string]any
	Before     any
	After      any
}

type AuditCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	Action     string
	EntityType string
	EntityID   string
	ActorID    string
	StartAt    *time.Time
	EndAt      *time.Time
	Cursor     *AuditCursor
	Limit      int
}
