package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/tutorbase/internal/audit/domain"
	"github.com/smallbiznis/tutorbase/pkg/db/pagination"
)

type listAuditLogsQuery struct {
	PageToken  string `form:"pageToken"`
	PageSize   int    `form:"pageSize"`
	Action     string `form:"action"`
	EntityType string `form:"entityType"`
	EntityID   string `form:"entityId"`
	ActorID    string `form:"actorId"`
	StartAt    string `form:"startAt"`
	EndAt      string `form:"endAt"`
}

func (s *Server) ListAuditLogs(c *gin.Context) {
	var query listAuditLogsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	startAt, err := parseOptionalTime(query.StartAt, false)
	if err != nil {
		AbortWithError(c, newValidationError("startAt", "invalid_start_at", "startAt must be RFC3339 or YYYY-MM-DD"))
		return
	}
	endAt, err := parseOptionalTime(query.EndAt, true)
	if err != nil {
		AbortWithError(c, newValidationError("endAt", "invalid_end_at", "endAt must be RFC3339 or YYYY-MM-DD"))
		return
	}

	resp, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		Action:     strings.TrimSpace(query.Action),
		EntityType: strings.TrimSpace(query.EntityType),
		EntityID:   strings.TrimSpace(query.EntityID),
		ActorID:    strings.TrimSpace(query.ActorID),
		StartAt:    startAt,
		EndAt:      endAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": resp.AuditLogs, "pagination": resp.PageInfo})
}
