package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	insurerdomain "github.com/smallbiznis/tutorbase/internal/insurer/domain"
)

func (s *Server) CreateInsurer(c *gin.Context) {
	var req insurerdomain.CreateInsurerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.insurerSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, resp)
}

func (s *Server) ListInsurers(c *gin.Context) {
	var req insurerdomain.ListInsurerRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.insurerSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondPage(c, resp.Insurers, resp.Meta)
}

func (s *Server) GetInsurerByID(c *gin.Context) {
	resp, err := s.insurerSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) GetInsurerByCode(c *gin.Context) {
	resp, err := s.insurerSvc.GetByCode(c.Request.Context(), strings.TrimSpace(c.Param("code")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) UpdateInsurer(c *gin.Context) {
	var req insurerdomain.UpdateInsurerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.insurerSvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) DeleteInsurer(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.insurerSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	respondDeleted(c, id)
}
