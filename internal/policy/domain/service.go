package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tutorbase/internal/errs"
	"github.com/smallbiznis/tutorbase/pkg/db/pagination"
)

type CreatePolicyRequest struct {
	InsurerID        string           `json:"insurerId" binding:"required"`
	Name             string           `json:"name" binding:"required,max=255"`
	Code             *string          `json:"code" binding:"omitempty,max=32"`
	PremiumAmount    decimal.Decimal  `json:"premiumAmount"`
	Currency         string           `json:"currency" binding:"omitempty,len=3"`
	PremiumFrequency Frequency        `json:"premiumFrequency"`
	TermMonths       *int             `json:"termMonths" binding:"omitempty,min=1"`
	MinCoverAmount   *decimal.Decimal `json:"minCoverAmount"`
	MaxCoverAmount   *decimal.Decimal `json:"maxCoverAmount"`
	Active           *bool            `json:"active"`
	Description      string           `json:"description"`
	CoverageDetails  string           `json:"coverageDetails"`
}

// UpdatePolicyRequest applies only the fields that are set.
type UpdatePolicyRequest struct {
	InsurerID        *string          `json:"insurerId"`
	Name             *string          `json:"name" binding:"omitempty,max=255"`
	Code             *string          `json:"code" binding:"omitempty,max=32"`
	PremiumAmount    *decimal.Decimal `json:"premiumAmount"`
	Currency         *string          `json:"currency" binding:"omitempty,len=3"`
	PremiumFrequency *Frequency       `json:"premiumFrequency"`
	TermMonths       *int             `json:"termMonths" binding:"omitempty,min=1"`
	MinCoverAmount   *decimal.Decimal `json:"minCoverAmount"`
	MaxCoverAmount   *decimal.Decimal `json:"maxCoverAmount"`
	Active           *bool            `json:"active"`
	Description      *string          `json:"description"`
	CoverageDetails  *string          `json:"coverageDetails"`
}

type ListPolicyRequest struct {
	pagination.Page
	Search     string `form:"search"`
	InsurerID  string `form:"insurerId"`
	ActiveOnly bool   `form:"activeOnly"`
}

type ListPolicyResponse struct {
	Policies []Policy        `json:"policies"`
	Meta     pagination.Meta `json:"pagination"`
}

type Service interface {
	Create(ctx context.Context, req CreatePolicyRequest) (Policy, error)
	Update(ctx context.Context, id string, req UpdatePolicyRequest) (Policy, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Policy, error)
	GetByCode(ctx context.Context, code string) (Policy, error)
	List(ctx context.Context, req ListPolicyRequest) (ListPolicyResponse, error)

	// Lookup reads a policy regardless of ownership for validation.
	Lookup(ctx context.Context, id snowflake.ID) (*Policy, error)
	Summaries(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]Summary, error)
}

var (
	ErrNotFound          = errs.New(errs.ErrNotFound, "policy_not_found")
	ErrNameTaken         = errs.New(errs.ErrConflict, "policy_name_taken")
	ErrCodeTaken         = errs.New(errs.ErrConflict, "policy_code_taken")
	ErrHasBindings       = errs.New(errs.ErrConflict, "policy_has_bindings")
	ErrInactive          = errs.New(errs.ErrConflict, "policy_inactive")
	ErrInvalidInsurer    = errs.Invalid("insurerId", "invalid_insurer", "insurer does not exist")
	ErrInvalidName       = errs.Invalid("name", "invalid_name", "name is required")
	ErrInvalidCode       = errs.Invalid("code", "invalid_code", "code must be upper case letters, digits or dashes")
	ErrInvalidPremium    = errs.Invalid("premiumAmount", "invalid_premium", "premium amount must be positive")
	ErrInvalidCurrency   = errs.Invalid("currency", "invalid_currency", "currency must be a three letter code")
	ErrInvalidFrequency  = errs.Invalid("premiumFrequency", "invalid_frequency", "premium frequency must be monthly, quarterly, yearly or one-time")
	ErrInvalidTerm       = errs.Invalid("termMonths", "invalid_term", "term must be at least one month")
	ErrInvalidCoverRange = errs.Invalid("maxCoverAmount", "invalid_cover_range", "maximum cover must not be below minimum cover")
	ErrInvalidCover      = errs.Invalid("minCoverAmount", "invalid_cover", "cover amounts must not be negative")
)
