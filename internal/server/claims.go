package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	claimdomain "github.com/smallbiznis/tutorbase/internal/claim/domain"
)

func (s *Server) CreateClaim(c *gin.Context) {
	var req claimdomain.CreateClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.claimSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, resp)
}

func (s *Server) ListClaims(c *gin.Context) {
	var req claimdomain.ListClaimRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.claimSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondPage(c, resp.Claims, resp.Meta)
}

func (s *Server) GetClaimByID(c *gin.Context) {
	resp, err := s.claimSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) UpdateClaim(c *gin.Context) {
	var req claimdomain.UpdateClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.claimSvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

// TransitionClaim moves a claim along its workflow.
func (s *Server) TransitionClaim(c *gin.Context) {
	var req claimdomain.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.claimSvc.Transition(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) DeleteClaim(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.claimSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	respondDeleted(c, id)
}
