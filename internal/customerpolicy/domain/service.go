package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tutorbase/internal/errs"
	"github.com/smallbiznis/tutorbase/pkg/db/pagination"
)

type CreateCustomerPolicyRequest struct {
	CustomerID         string  `json:"customerId" binding:"required"`
	PolicyID           string  `json:"policyId" binding:"required"`
	InsurerID          *string `json:"insurerId"`
	PolicyNumber       *string `json:"policyNumber" binding:"omitempty,max=64"`
	Status             Status  `json:"status"`
	StartDate          string  `json:"startDate" binding:"required"`
	NextPremiumDueDate *string `json:"nextPremiumDueDate"`
	InsuredPersonID    *string `json:"insuredPersonId"`
}

// UpdateCustomerPolicyRequest applies only the fields that are set. An empty
// nextPremiumDueDate clears the due date.
type UpdateCustomerPolicyRequest struct {
	PolicyID           *string `json:"policyId"`
	InsurerID          *string `json:"insurerId"`
	PolicyNumber       *string `json:"policyNumber" binding:"omitempty,max=64"`
	Status             *Status `json:"status"`
	StartDate          *string `json:"startDate"`
	NextPremiumDueDate *string `json:"nextPremiumDueDate"`
	InsuredPersonID    *string `json:"insuredPersonId"`
}

type ListCustomerPolicyRequest struct {
	pagination.Page
	Search     string `form:"search"`
	CustomerID string `form:"customerId"`
	PolicyID   string `form:"policyId"`
	InsurerID  string `form:"insurerId"`
	Status     Status `form:"status"`
}

type ListCustomerPolicyResponse struct {
	CustomerPolicies []View          `json:"customerPolicies"`
	Meta             pagination.Meta `json:"pagination"`
}

type Service interface {
	Create(ctx context.Context, req CreateCustomerPolicyRequest) (View, error)
	Update(ctx context.Context, id string, req UpdateCustomerPolicyRequest) (View, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (View, error)
	List(ctx context.Context, req ListCustomerPolicyRequest) (ListCustomerPolicyResponse, error)

	// Owned reads a binding the acting user may see, nil otherwise.
	Owned(ctx context.Context, id snowflake.ID) (*CustomerPolicy, error)
	// Summaries resolves projections regardless of ownership.
	Summaries(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]Summary, error)
	// ExpireMatured marks active bindings whose term ended on or before asOf
	// as expired, stopping after limit bindings.
	ExpireMatured(ctx context.Context, asOf time.Time, limit int) (int, error)
}

var (
	ErrNotFound          = errs.New(errs.ErrNotFound, "customer_policy_not_found")
	ErrPolicyNumberTaken = errs.New(errs.ErrConflict, "policy_number_taken")
	ErrHasDependents     = errs.New(errs.ErrConflict, "customer_policy_has_dependents")

	ErrInvalidCustomer     = errs.Invalid("customerId", "invalid_customer", "customer does not exist")
	ErrInvalidPolicy       = errs.Invalid("policyId", "invalid_policy", "policy does not exist")
	ErrInsurerMismatch     = errs.Invalid("insurerId", "insurer_mismatch", "insurer does not match the policy")
	ErrInvalidStatus       = errs.Invalid("status", "invalid_status", "status must be active, lapsed, cancelled or expired")
	ErrInvalidPolicyNumber = errs.Invalid("policyNumber", "invalid_policy_number", "policy number must not be blank")
)
