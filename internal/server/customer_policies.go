package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	customerpolicydomain "github.com/smallbiznis/tutorbase/internal/customerpolicy/domain"
)

func (s *Server) CreateCustomerPolicy(c *gin.Context) {
	var req customerpolicydomain.CreateCustomerPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.customerPolicySvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, resp)
}

func (s *Server) ListCustomerPolicies(c *gin.Context) {
	var req customerpolicydomain.ListCustomerPolicyRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.customerPolicySvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondPage(c, resp.CustomerPolicies, resp.Meta)
}

func (s *Server) GetCustomerPolicyByID(c *gin.Context) {
	resp, err := s.customerPolicySvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) UpdateCustomerPolicy(c *gin.Context) {
	var req customerpolicydomain.UpdateCustomerPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.customerPolicySvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) DeleteCustomerPolicy(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.customerPolicySvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	respondDeleted(c, id)
}
