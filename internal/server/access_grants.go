package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type accessGrantRequest struct {
	UserID string `json:"userId" binding:"required"`
	Object string `json:"object" binding:"required"`
	Action string `json:"action" binding:"required"`
}

// CreateAccessGrant gives one user a capability their role lacks.
func (s *Server) CreateAccessGrant(c *gin.Context) {
	var req accessGrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.Object = strings.TrimSpace(req.Object)
	req.Action = strings.TrimSpace(req.Action)

	if err := s.authz.Grant(req.UserID, req.Object, req.Action); err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, req)
}

func (s *Server) DeleteAccessGrant(c *gin.Context) {
	req := accessGrantRequest{
		UserID: strings.TrimSpace(c.Param("userId")),
		Object: strings.TrimSpace(c.Param("object")),
		Action: strings.TrimSpace(c.Param("action")),
	}
	if err := s.authz.Revoke(req.UserID, req.Object, req.Action); err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"userId": req.UserID, "object": req.Object, "action": req.Action, "revoked": true})
}
