package service_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tutorbase/internal/access"
	auditdomain "github.com/smallbiznis/tutorbase/internal/audit/domain"
	customerpolicydomain "github.com/smallbiznis/tutorbase/internal/customerpolicy/domain"
	"github.com/smallbiznis/tutorbase/internal/errs"
	policydomain "github.com/smallbiznis/tutorbase/internal/policy/domain"
	"github.com/smallbiznis/tutorbase/internal/policypayment/domain"
	"github.com/smallbiznis/tutorbase/internal/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 2, 3, 14, 30, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func day(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCreatePaymentMovesDueDate(t *testing.T) {
	stack := testkit.NewStack(t, now)
	ctx := testkit.Staff()
	_, policy, customer := stack.Catalog(t, ctx)
	binding := stack.Binding(t, ctx, customer, policy, "2024-01-01")

	payment, err := stack.Payments.Create(ctx, domain.CreatePolicyPaymentRequest{
		CustomerPolicyID: binding.ID.String(),
		Amount:           decimal.RequireFromString("500.00"),
		PaymentDate:      "2024-01-31",
		ModeOfPayment:    domain.ModeUPI,
		Reference:        " upi-889 ",
	})
	require.NoError(t, err)

	assert.Equal(t, "TXN-20240131-0001", payment.TransactionID)
	assert.Equal(t, "INR", payment.Currency)
	assert.Equal(t, "upi-889", payment.Reference)
	require.NotNil(t, payment.CustomerPolicy)
	assert.Equal(t, binding.PolicyNumber, payment.CustomerPolicy.PolicyNumber)
	require.NotNil(t, payment.Customer)
	assert.Equal(t, customer.ID, payment.Customer.ID)
	require.NotNil(t, payment.Insurer)
	require.NotNil(t, payment.Policy)

	updated, err := stack.CustomerPolicy.GetByID(ctx, binding.ID.String())
	require.NoError(t, err)
	require.NotNil(t, updated.NextPremiumDueDate)
	// month-end clamps into the leap-year February
	assert.Equal(t, day("2024-02-29"), updated.NextPremiumDueDate.UTC())

	second, err := stack.Payments.Create(ctx, domain.CreatePolicyPaymentRequest{
		CustomerPolicyID: binding.ID.String(),
		Amount:           decimal.NewFromInt(500),
		PaymentDate:      "2024-01-31",
	})
	require.NoError(t, err)
	assert.Equal(t, "TXN-20240131-0002", second.TransactionID)
	assert.Equal(t, domain.ModeCash, second.ModeOfPayment)

	var entry auditdomain.AuditLog
	require.NoError(t, stack.DB.Where("entity_id = ? AND action = ?", payment.ID.String(), auditdomain.ActionCreate).First(&entry).Error)
	assert.Equal(t, access.ObjectPolicyPayment, entry.EntityType)
}

func TestCreatePaymentDefaultsToToday(t *testing.T) {
	stack := testkit.NewStack(t, now)
	ctx := testkit.Staff()
	insurer, _, customer := stack.Catalog(t, ctx)
	quarterly := stack.Policy(t, ctx, insurer, "Quarterly Cover", "1500", policydomain.FrequencyQuarterly, 12)
	binding := stack.Binding(t, ctx, customer, quarterly, "2024-01-01")

	payment, err := stack.Payments.Create(ctx, domain.CreatePolicyPaymentRequest{
		CustomerPolicyID: binding.ID.String(),
		Amount:           decimal.NewFromInt(1500),
	})
	require.NoError(t, err)
	assert.Equal(t, day("2024-02-03"), payment.PaymentDate.UTC())

	updated, err := stack.CustomerPolicy.GetByID(ctx, binding.ID.String())
	require.NoError(t, err)
	assert.Equal(t, day("2024-05-03"), updated.NextPremiumDueDate.UTC())
}

func TestOneTimePremiumLeavesDueDate(t *testing.T) {
	stack := testkit.NewStack(t, now)
	ctx := testkit.Staff()
	insurer, _, customer := stack.Catalog(t, ctx)
	single := stack.Policy(t, ctx, insurer, "Single Premium", "9000", policydomain.FrequencyOneTime, 12)
	binding, err := stack.CustomerPolicy.Create(ctx, customerpolicydomain.CreateCustomerPolicyRequest{
		CustomerID:         customer.ID.String(),
		PolicyID:           single.ID.String(),
		StartDate:          "2024-01-01",
		NextPremiumDueDate: ptr("2024-01-10"),
	})
	require.NoError(t, err)

	_, err = stack.Payments.Create(ctx, domain.CreatePolicyPaymentRequest{
		CustomerPolicyID: binding.ID.String(),
		Amount:           decimal.NewFromInt(9000),
		PaymentDate:      "2024-01-05",
	})
	require.NoError(t, err)

	updated, err := stack.CustomerPolicy.GetByID(ctx, binding.ID.String())
	require.NoError(t, err)
	assert.Equal(t, day("2024-01-10"), updated.NextPremiumDueDate.UTC())
}

func TestCreatePaymentValidation(t *testing.T) {
	stack := testkit.NewStack(t, now)
	ctx := testkit.Staff()
	_, policy, customer := stack.Catalog(t, ctx)
	binding := stack.Binding(t, ctx, customer, policy, "2024-01-01")

	_, err := stack.Payments.Create(ctx, domain.CreatePolicyPaymentRequest{
		CustomerPolicyID: binding.ID.String(),
		Amount:           decimal.NewFromInt(-5),
		ModeOfPayment:    "barter",
		Currency:         "rs",
		PaymentDate:      "yesterday",
	})
	require.ErrorIs(t, err, errs.ErrValidation)
	vErr, _ := errs.AsValidation(err)
	assert.Len(t, vErr.Fields, 4)

	_, err = stack.Payments.Create(ctx, domain.CreatePolicyPaymentRequest{
		CustomerPolicyID: "777",
		Amount:           decimal.NewFromInt(5),
	})
	assert.ErrorIs(t, err, customerpolicydomain.ErrNotFound)

	_, err = stack.Payments.Create(testkit.OtherStaffCtx(), domain.CreatePolicyPaymentRequest{
		CustomerPolicyID: binding.ID.String(),
		Amount:           decimal.NewFromInt(5),
	})
	assert.ErrorIs(t, err, customerpolicydomain.ErrNotFound)
}

func TestPaymentOnClosedBindingIsRejected(t *testing.T) {
	stack := testkit.NewStack(t, now)
	ctx := testkit.Staff()
	_, policy, customer := stack.Catalog(t, ctx)
	binding := stack.Binding(t, ctx, customer, policy, "2024-01-01")

	_, err := stack.CustomerPolicy.Update(ctx, binding.ID.String(), customerpolicydomain.UpdateCustomerPolicyRequest{
		Status: ptr(customerpolicydomain.StatusCancelled),
	})
	require.NoError(t, err)

	_, err = stack.Payments.Create(ctx, domain.CreatePolicyPaymentRequest{
		CustomerPolicyID: binding.ID.String(),
		Amount:           decimal.NewFromInt(500),
	})
	assert.ErrorIs(t, err, domain.ErrBindingClosed)
	assert.ErrorIs(t, err, errs.ErrConflict)
}

func TestPaymentOnLapsedBindingIsAccepted(t *testing.T) {
	stack := testkit.NewStack(t, now)
	ctx := testkit.Staff()
	_, policy, customer := stack.Catalog(t, ctx)
	binding := stack.Binding(t, ctx, customer, policy, "2024-01-01")
	_, err := stack.CustomerPolicy.Update(ctx, binding.ID.String(), customerpolicydomain.UpdateCustomerPolicyRequest{
		Status: ptr(customerpolicydomain.StatusLapsed),
	})
	require.NoError(t, err)

	_, err = stack.Payments.Create(ctx, domain.CreatePolicyPaymentRequest{
		CustomerPolicyID: binding.ID.String(),
		Amount:           decimal.NewFromInt(500),
	})
	assert.NoError(t, err)
}

func TestUpdatePaymentKeepsDueDate(t *testing.T) {
	stack := testkit.NewStack(t, now)
	ctx := testkit.Staff()
	_, policy, customer := stack.Catalog(t, ctx)
	binding := stack.Binding(t, ctx, customer, policy, "2024-01-01")
	payment, err := stack.Payments.Create(ctx, domain.CreatePolicyPaymentRequest{
		CustomerPolicyID: binding.ID.String(),
		Amount:           decimal.NewFromInt(500),
		PaymentDate:      "2024-01-10",
	})
	require.NoError(t, err)

	updated, err := stack.Payments.Update(ctx, payment.ID.String(), domain.UpdatePolicyPaymentRequest{
		PaymentDate:   ptr("2024-01-20"),
		ModeOfPayment: ptr(domain.ModeCheque),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ModeCheque, updated.ModeOfPayment)
	assert.Equal(t, payment.TransactionID, updated.TransactionID)

	view, err := stack.CustomerPolicy.GetByID(ctx, binding.ID.String())
	require.NoError(t, err)
	assert.Equal(t, day("2024-02-10"), view.NextPremiumDueDate.UTC())
}

func TestDeletePaymentRequiresPrivilegeAndKeepsDueDate(t *testing.T) {
	stack := testkit.NewStack(t, now)
	ctx := testkit.Staff()
	_, policy, customer := stack.Catalog(t, ctx)
	binding := stack.Binding(t, ctx, customer, policy, "2024-01-01")
	payment, err := stack.Payments.Create(ctx, domain.CreatePolicyPaymentRequest{
		CustomerPolicyID: binding.ID.String(),
		Amount:           decimal.NewFromInt(500),
		PaymentDate:      "2024-01-10",
	})
	require.NoError(t, err)

	err = stack.Payments.Delete(ctx, payment.ID.String())
	assert.ErrorIs(t, err, errs.ErrForbidden)

	require.NoError(t, stack.Payments.Delete(testkit.Moderator(), payment.ID.String()))
	_, err = stack.Payments.GetByID(ctx, payment.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, int64(1), testkit.AuditCount(t, stack.DB, access.ObjectPolicyPayment, payment.ID.String(), auditdomain.ActionDelete))

	view, err := stack.CustomerPolicy.GetByID(ctx, binding.ID.String())
	require.NoError(t, err)
	assert.Equal(t, day("2024-02-10"), view.NextPremiumDueDate.UTC())
}

func TestDeletePaymentHonoursUserGrant(t *testing.T) {
	stack := testkit.NewStack(t, now)
	ctx := testkit.Staff()
	_, policy, customer := stack.Catalog(t, ctx)
	binding := stack.Binding(t, ctx, customer, policy, "2024-01-01")
	payment, err := stack.Payments.Create(ctx, domain.CreatePolicyPaymentRequest{
		CustomerPolicyID: binding.ID.String(),
		Amount:           decimal.NewFromInt(500),
		PaymentDate:      "2024-01-10",
	})
	require.NoError(t, err)

	require.NoError(t, stack.Access.Grant(testkit.StaffID, access.ObjectPolicyPayment, access.ActionDelete))
	require.NoError(t, stack.Payments.Delete(ctx, payment.ID.String()))
	_, err = stack.Payments.GetByID(ctx, payment.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	second, err := stack.Payments.Create(ctx, domain.CreatePolicyPaymentRequest{
		CustomerPolicyID: binding.ID.String(),
		Amount:           decimal.NewFromInt(500),
		PaymentDate:      "2024-02-10",
	})
	require.NoError(t, err)
	require.NoError(t, stack.Access.Revoke(testkit.StaffID, access.ObjectPolicyPayment, access.ActionDelete))
	err = stack.Payments.Delete(ctx, second.ID.String())
	assert.ErrorIs(t, err, errs.ErrForbidden)
}

func TestListPaymentsByDateRange(t *testing.T) {
	stack := testkit.NewStack(t, now)
	ctx := testkit.Staff()
	_, policy, customer := stack.Catalog(t, ctx)
	binding := stack.Binding(t, ctx, customer, policy, "2024-01-01")
	for _, date := range []string{"2024-01-05", "2024-01-20", "2024-02-01"} {
		_, err := stack.Payments.Create(ctx, domain.CreatePolicyPaymentRequest{
			CustomerPolicyID: binding.ID.String(),
			Amount:           decimal.NewFromInt(500),
			PaymentDate:      date,
		})
		require.NoError(t, err)
	}

	list, err := stack.Payments.List(ctx, domain.ListPolicyPaymentRequest{From: "2024-01-05", To: "2024-01-20"})
	require.NoError(t, err)
	assert.Len(t, list.PolicyPayments, 2)

	list, err = stack.Payments.List(ctx, domain.ListPolicyPaymentRequest{CustomerPolicyID: binding.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, int64(3), list.Meta.Total)

	list, err = stack.Payments.List(testkit.OtherStaffCtx(), domain.ListPolicyPaymentRequest{})
	require.NoError(t, err)
	assert.Empty(t, list.PolicyPayments)

	_, err = stack.Payments.List(ctx, domain.ListPolicyPaymentRequest{From: "2024-02-01", To: "2024-01-01"})
	assert.Equal(t, "invalid_date_range", errs.CodeOf(err))
}
