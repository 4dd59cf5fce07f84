package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	policydomain "github.com/smallbiznis/tutorbase/internal/policy/domain"
)

func (s *Server) CreatePolicy(c *gin.Context) {
	var req policydomain.CreatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.policySvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, resp)
}

func (s *Server) ListPolicies(c *gin.Context) {
	var req policydomain.ListPolicyRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.policySvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondPage(c, resp.Policies, resp.Meta)
}

func (s *Server) GetPolicyByID(c *gin.Context) {
	resp, err := s.policySvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) GetPolicyByCode(c *gin.Context) {
	resp, err := s.policySvc.GetByCode(c.Request.Context(), strings.TrimSpace(c.Param("code")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) UpdatePolicy(c *gin.Context) {
	var req policydomain.UpdatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.policySvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) DeletePolicy(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.policySvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	respondDeleted(c, id)
}
