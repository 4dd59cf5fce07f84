package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/tutorbase/internal/errs"
	"github.com/smallbiznis/tutorbase/pkg/db/pagination"
)

type ListAuditLogRequest struct {
	pagination.Pagination
	Action     string
	EntityType string
	EntityID   string
	ActorID    string
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"auditLogs"`
}

type Service interface {
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidAction    = errs.Invalid("action", "invalid_action", "action is required")
	ErrInvalidEntity    = errs.Invalid("entityType", "invalid_entity", "entity type and id are required")
	ErrInvalidPageToken = errs.Invalid("pageToken", "invalid_page_token", "page token is malformed")
	ErrInvalidTimeRange = errs.Invalid("startAt", "invalid_time_range", "startAt must not be after endAt")
)
