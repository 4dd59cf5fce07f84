package domain

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tutorbase/internal/errs"
	"github.com/smallbiznis/tutorbase/pkg/db/pagination"
)

type CreateClaimRequest struct {
	CustomerPolicyID string           `json:"customerPolicyId" binding:"required"`
	DateOfEvent      *string          `json:"dateOfEvent"`
	AmountClaimed    *decimal.Decimal `json:"amountClaimed"`
	Currency         string           `json:"currency" binding:"omitempty,len=3"`
	Status           Status           `json:"status"`
	ClaimantID       *string          `json:"claimantId" binding:"omitempty,max=64"`
	Notes            string           `json:"notes"`
	SupportingDocs   []string         `json:"supportingDocs" binding:"omitempty,dive,max=1024"`
}

// UpdateClaimRequest applies only the fields that are set. A status change
// goes through the claim workflow.
type UpdateClaimRequest struct {
	ClaimNumber    *string          `json:"claimNumber" binding:"omitempty,max=64"`
	DateOfEvent    *string          `json:"dateOfEvent"`
	AmountClaimed  *decimal.Decimal `json:"amountClaimed"`
	AmountApproved *decimal.Decimal `json:"amountApproved"`
	Notes          *string          `json:"notes"`
	SupportingDocs *[]string        `json:"supportingDocs" binding:"omitempty,dive,max=1024"`
	Status         *Status          `json:"status"`
}

type TransitionRequest struct {
	Status         Status           `json:"status" binding:"required"`
	AmountApproved *decimal.Decimal `json:"amountApproved"`
}

type ListClaimRequest struct {
	pagination.Page
	Search           string `form:"search"`
	CustomerPolicyID string `form:"customerPolicyId"`
	Status           Status `form:"status"`
}

type ListClaimResponse struct {
	Claims []View          `json:"claims"`
	Meta   pagination.Meta `json:"pagination"`
}

type Service interface {
	Create(ctx context.Context, req CreateClaimRequest) (View, error)
	Update(ctx context.Context, id string, req UpdateClaimRequest) (View, error)
	Transition(ctx context.Context, id string, req TransitionRequest) (View, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (View, error)
	List(ctx context.Context, req ListClaimRequest) (ListClaimResponse, error)
}

var (
	ErrNotFound         = errs.New(errs.ErrNotFound, "claim_not_found")
	ErrClaimNumberTaken = errs.New(errs.ErrConflict, "claim_number_taken")
	ErrBindingNotActive = errs.New(errs.ErrConflict, "invalid_state")
	ErrDeleteForbidden  = errs.New(errs.ErrForbidden, "claim_delete_forbidden")

	ErrInvalidStatus         = errs.Invalid("status", "invalid_status", "initial status must be draft or submitted")
	ErrInvalidAmountClaimed  = errs.Invalid("amountClaimed", "invalid_amount", "amount claimed must not be negative")
	ErrInvalidAmountApproved = errs.Invalid("amountApproved", "invalid_amount_approved", "amount approved must be between zero and the amount claimed")
	ErrInvalidClaimNumber    = errs.Invalid("claimNumber", "invalid_claim_number", "claim number must not be blank")
	ErrInvalidCurrency       = errs.Invalid("currency", "invalid_currency", "currency must be a three letter code")
)
