package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	policypaymentdomain "github.com/smallbiznis/tutorbase/internal/policypayment/domain"
)

func (s *Server) CreatePolicyPayment(c *gin.Context) {
	var req policypaymentdomain.CreatePolicyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.paymentSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, resp)
}

func (s *Server) ListPolicyPayments(c *gin.Context) {
	var req policypaymentdomain.ListPolicyPaymentRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.paymentSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondPage(c, resp.PolicyPayments, resp.Meta)
}

func (s *Server) GetPolicyPaymentByID(c *gin.Context) {
	resp, err := s.paymentSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) UpdatePolicyPayment(c *gin.Context) {
	var req policypaymentdomain.UpdatePolicyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.paymentSvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) DeletePolicyPayment(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.paymentSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	respondDeleted(c, id)
}
