package server

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/tutorbase/internal/actorcontext"
	obslogger "github.com/smallbiznis/tutorbase/internal/observability/logger"
	"go.uber.org/zap"
)

// Claims are the token fields the api reads. Subject carries the user id.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Authenticated verifies the bearer token and stores the actor in the
// request context.
func (s *Server) Authenticated() gin.HandlerFunc {
	secret := []byte(s.cfg.AuthJWTSecret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			AbortWithError(c, ErrMissingToken)
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			AbortWithError(c, ErrInvalidToken)
			return
		}

		actor, err := parseActor(parser, secret, strings.TrimSpace(token))
		if err != nil {
			obslogger.FromContext(c.Request.Context()).Debug("bearer token rejected", zap.Error(err))
			AbortWithError(c, ErrInvalidToken)
			return
		}

		c.Request = c.Request.WithContext(actorcontext.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

func parseActor(parser *jwt.Parser, secret []byte, raw string) (actorcontext.Actor, error) {
	if len(secret) == 0 {
		return actorcontext.Actor{}, fmt.Errorf("jwt secret is not configured")
	}

	claims := &Claims{}
	token, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return actorcontext.Actor{}, err
	}
	if !token.Valid {
		return actorcontext.Actor{}, fmt.Errorf("token is not valid")
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return actorcontext.Actor{}, fmt.Errorf("token has no subject")
	}
	role, ok := actorcontext.ParseRole(claims.Role)
	if !ok {
		return actorcontext.Actor{}, fmt.Errorf("unknown role %q", claims.Role)
	}
	return actorcontext.Actor{ID: subject, Role: role}, nil
}
