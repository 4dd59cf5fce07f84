package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tutorbase/internal/errs"
	"github.com/smallbiznis/tutorbase/pkg/db/pagination"
)

type CreateInsurerRequest struct {
	Name          string  `json:"name" binding:"required,max=255"`
	Code          *string `json:"code" binding:"omitempty,max=16"`
	ContactPerson string  `json:"contactPerson" binding:"max=255"`
	Phone         string  `json:"phone" binding:"max=32"`
	Email         string  `json:"email" binding:"omitempty,email"`
	Address       string  `json:"address"`
	IsActive      *bool   `json:"isActive"`
}

// UpdateInsurerRequest applies only the fields that are set.
type UpdateInsurerRequest struct {
	Name          *string `json:"name" binding:"omitempty,max=255"`
	Code          *string `json:"code" binding:"omitempty,max=16"`
	ContactPerson *string `json:"contactPerson" binding:"omitempty,max=255"`
	Phone         *string `json:"phone" binding:"omitempty,max=32"`
	Email         *string `json:"email" binding:"omitempty,email"`
	Address       *string `json:"address"`
	IsActive      *bool   `json:"isActive"`
}

type ListInsurerRequest struct {
	pagination.Page
	Search     string `form:"search"`
	ActiveOnly bool   `form:"activeOnly"`
}

type ListInsurerResponse struct {
	Insurers []Insurer       `json:"insurers"`
	Meta     pagination.Meta `json:"pagination"`
}

type Service interface {
	Create(ctx context.Context, req CreateInsurerRequest) (Insurer, error)
	Update(ctx context.Context, id string, req UpdateInsurerRequest) (Insurer, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Insurer, error)
	GetByCode(ctx context.Context, code string) (Insurer, error)
	List(ctx context.Context, req ListInsurerRequest) (ListInsurerResponse, error)

	// Lookup reads an insurer regardless of ownership for validation.
	Lookup(ctx context.Context, id snowflake.ID) (*Insurer, error)
	Summaries(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]Summary, error)
}

var (
	ErrNotFound     = errs.New(errs.ErrNotFound, "insurer_not_found")
	ErrNameTaken    = errs.New(errs.ErrConflict, "insurer_name_taken")
	ErrCodeTaken    = errs.New(errs.ErrConflict, "insurer_code_taken")
	ErrHasPolicies  = errs.New(errs.ErrConflict, "insurer_has_policies")
	ErrInactive     = errs.New(errs.ErrConflict, "insurer_inactive")
	ErrInvalidName  = errs.Invalid("name", "invalid_name", "name is required")
	ErrInvalidCode  = errs.Invalid("code", "invalid_code", "code must be upper case letters and digits")
	ErrInvalidEmail = errs.Invalid("email", "invalid_email", "email is not valid")
)
