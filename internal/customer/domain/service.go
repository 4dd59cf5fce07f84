package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tutorbase/internal/errs"
	"github.com/smallbiznis/tutorbase/pkg/db/pagination"
)

type CreateCustomerRequest struct {
	Name  string `json:"name" binding:"required,max=255"`
	Email string `json:"email" binding:"omitempty,email"`
	Phone string `json:"phone" binding:"omitempty,max=32"`
}

type ListCustomerRequest struct {
	pagination.Page
	Search string `form:"search"`
}

type ListCustomerResponse struct {
	Customers []Customer      `json:"customers"`
	Meta      pagination.Meta `json:"pagination"`
}

type Service interface {
	Create(ctx context.Context, req CreateCustomerRequest) (Customer, error)
	GetByID(ctx context.Context, id string) (Customer, error)
	List(ctx context.Context, req ListCustomerRequest) (ListCustomerResponse, error)
	// Exists checks any customer regardless of ownership.
	Exists(ctx context.Context, id snowflake.ID) (bool, error)
	// Summaries resolves projections regardless of ownership.
	Summaries(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]Summary, error)
}

var (
	ErrNotFound     = errs.New(errs.ErrNotFound, "customer_not_found")
	ErrInvalidName  = errs.Invalid("name", "invalid_name", "name is required")
	ErrInvalidEmail = errs.Invalid("email", "invalid_email", "email is not valid")
)
