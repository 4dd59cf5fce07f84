// Package access narrows queries to what the requester may see and checks
// role capabilities before a handler runs.
package access

import (
	"context"

	"github.com/smallbiznis/tutorbase/internal/actorcontext"
	"github.com/smallbiznis/tutorbase/pkg/db/option"
	"gorm.io/gorm"
)

// OwnerColumn is the ownership column every scoped table carries.
const OwnerColumn = "created_by"

// Scope adds the ownership predicate for the base role. Privileged roles see
// every row.
func Scope(db *gorm.DB, role actorcontext.Role, requesterID string) *gorm.DB {
	if role.Privileged() {
		return db
	}
	return db.Where(OwnerColumn+" = ?", requesterID)
}

// Owned scopes a query to the actor in ctx. Without an actor nothing matches.
func Owned(ctx context.Context) option.QueryOption {
	actor, ok := actorcontext.FromContext(ctx)
	return option.Func(func(db *gorm.DB) *gorm.DB {
		if !ok {
			return db.Where("1 = 0")
		}
		return Scope(db, actor.Role, actor.ID)
	})
}
