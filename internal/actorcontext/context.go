// Package actorcontext carries the authenticated requester through a request.
package actorcontext

import (
	"context"
	"strings"
)

type Role string

const (
	RoleStaff     Role = "staff"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
	RoleSystem    Role = "system"
)

// ParseRole accepts only the roles an identity provider may assign.
func ParseRole(value string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleStaff:
		return RoleStaff, true
	case RoleModerator:
		return RoleModerator, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

// Privileged reports whether the role sees every record.
func (r Role) Privileged() bool {
	switch r {
	case RoleModerator, RoleAdmin, RoleSystem:
		return true
	default:
		return false
	}
}

type Actor struct {
	ID   string
	Role Role
}

// System is the actor used by background jobs.
var System = Actor{ID: "system", Role: RoleSystem}

func (a Actor) Subject() string {
	return "user:" + a.ID
}

type actorKey struct{}

func WithActor(ctx context.Context, actor Actor) context.Context {
	actor.ID = strings.TrimSpace(actor.ID)
	return context.WithValue(ctx, actorKey{}, actor)
}

// FromContext returns the actor stored by WithActor, if any.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	if !ok || actor.ID == "" || actor.Role == "" {
		return Actor{}, false
	}
	return actor, true
}
