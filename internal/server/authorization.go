package server

import (
	"github.com/gin-gonic/gin"
)

// require rejects the request unless the actor's role holds the capability.
func (s *Server) require(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.authz.Authorize(c.Request.Context(), object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
