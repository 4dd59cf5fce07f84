package domain

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tutorbase/internal/errs"
	"github.com/smallbiznis/tutorbase/pkg/db/pagination"
)

type CreatePolicyPaymentRequest struct {
	CustomerPolicyID string          `json:"customerPolicyId" binding:"required"`
	PayerID          *string         `json:"payerId"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency" binding:"omitempty,len=3"`
	PaymentDate      string          `json:"paymentDate"`
	ModeOfPayment    Mode            `json:"modeOfPayment"`
	Reference        string          `json:"reference" binding:"max=255"`
}

// UpdatePolicyPaymentRequest edits the payment record only.
type UpdatePolicyPaymentRequest struct {
	PayerID       *string          `json:"payerId"`
	Amount        *decimal.Decimal `json:"amount"`
	Currency      *string          `json:"currency" binding:"omitempty,len=3"`
	PaymentDate   *string          `json:"paymentDate"`
	ModeOfPayment *Mode            `json:"modeOfPayment"`
	Reference     *string          `json:"reference" binding:"omitempty,max=255"`
}

type ListPolicyPaymentRequest struct {
	pagination.Page
	CustomerPolicyID string `form:"customerPolicyId"`
	ModeOfPayment    Mode   `form:"modeOfPayment"`
	From             string `form:"from"`
	To               string `form:"to"`
}

type ListPolicyPaymentResponse struct {
	PolicyPayments []View          `json:"policyPayments"`
	Meta           pagination.Meta `json:"pagination"`
}

type Service interface {
	Create(ctx context.Context, req CreatePolicyPaymentRequest) (View, error)
	Update(ctx context.Context, id string, req UpdatePolicyPaymentRequest) (View, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (View, error)
	List(ctx context.Context, req ListPolicyPaymentRequest) (ListPolicyPaymentResponse, error)
}

var (
	ErrNotFound      = errs.New(errs.ErrNotFound, "policy_payment_not_found")
	ErrBindingClosed = errs.New(errs.ErrConflict, "customer_policy_closed")

	ErrInvalidAmount    = errs.Invalid("amount", "invalid_amount", "amount must be positive")
	ErrInvalidCurrency  = errs.Invalid("currency", "invalid_currency", "currency must be a three letter code")
	ErrInvalidMode      = errs.Invalid("modeOfPayment", "invalid_mode", "mode of payment must be cash, card, bank_transfer, upi, cheque or other")
	ErrInvalidDateRange = errs.Invalid("to", "invalid_date_range", "to must not be before from")
)
