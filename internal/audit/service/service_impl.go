package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tutorbase/internal/actorcontext"
	auditdomain "github.com/smallbiznis/tutorbase/internal/audit/domain"
	"github.com/smallbiznis/tutorbase/internal/audit/snapshot"
	"github.com/smallbiznis/tutorbase/internal/auditcontext"
	"github.com/smallbiznis/tutorbase/internal/clock"
	"github.com/smallbiznis/tutorbase/internal/observability/logger"
	"github.com/smallbiznis/tutorbase/internal/observability/metrics"
	"github.com/smallbiznis/tutorbase/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    auditdomain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    auditdomain.Repository
	metrics *metrics.Metrics
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("audit.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

// Record appends one entry. Callers invoke it only after their mutation
// committed, so a failure here is logged and returned but never undoes the
// mutation.
func (s *Service) Record(ctx context.Context, entry auditdomain.Entry) error {
	action := strings.TrimSpace(entry.Action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}
	entityType := strings.TrimSpace(entry.EntityType)
	entityID := strings.TrimSpace(entry.EntityID)
	if entityType == "" || entityID == "" {
		return auditdomain.ErrInvalidEntity
	}

	actorID, actorRole := s.resolveActor(ctx, entry)

	details := map[string]any{}
	for key, value := range entry.Details {
		if key == "" {
			continue
		}
		details[key] = value
	}
	before := snapshot.Of(entry.Before)
	after := snapshot.Of(entry.After)
	if before != nil {
		details["before"] = before
	}
	if after != nil {
		details["after"] = after
	}
	if before != nil && after != nil {
		details["changes"] = snapshot.Of(snapshot.Diff(before, after))
	}

	log := auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		ActorID:    actorID,
		ActorRole:  actorRole,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Summary:    strings.TrimSpace(entry.Summary),
		CreatedAt:  s.clock.Now().UTC(),
	}
	if len(details) > 0 {
		log.Details = datatypes.JSONMap(details)
	}
	if requestID := auditcontext.RequestIDFromContext(ctx); requestID != "" {
		log.RequestID = &requestID
	}
	if ip := auditcontext.IPAddressFromContext(ctx); ip != "" {
		log.IPAddress = &ip
	}
	if ua := auditcontext.UserAgentFromContext(ctx); ua != "" {
		log.UserAgent = &ua
	}

	err := s.repo.Insert(ctx, s.db, &log)
	s.metrics.IncAuditEntry(entityType, err)
	if err != nil {
		logger.WithContext(ctx, s.log).Warn("failed to write audit log",
			zap.String("action", action),
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidTimeRange
	}

	var cursor *auditdomain.AuditCursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
		if err != nil {
			return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidPageToken
		}
		cursor = &auditdomain.AuditCursor{ID: id, CreatedAt: createdAt}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 250 {
		pageSize = 250
	}

	items, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		Action:     req.Action,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		ActorID:    req.ActorID,
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
		Cursor:     cursor,
		Limit:      pageSize,
	})
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(item *auditdomain.AuditLog) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(items) > pageSize {
		items = items[:pageSize]
	}

	logs := make([]auditdomain.AuditLog, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		logs = append(logs, *item)
	}

	resp := auditdomain.ListAuditLogResponse{AuditLogs: logs}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) resolveActor(ctx context.Context, entry auditdomain.Entry) (string, string) {
	actorID := strings.TrimSpace(entry.ActorID)
	actorRole := strings.TrimSpace(entry.ActorRole)
	if actor, ok := actorcontext.FromContext(ctx); ok {
		if actorID == "" {
			actorID = actor.ID
		}
		if actorRole == "" {
			actorRole = string(actor.Role)
		}
	}
	if actorID == "" {
		actorID = actorcontext.System.ID
		actorRole = string(actorcontext.System.Role)
	}
	return actorID, actorRole
}
