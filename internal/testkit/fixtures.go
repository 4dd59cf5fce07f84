package testkit

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	customerdomain "github.com/smallbiznis/tutorbase/internal/customer/domain"
	customerpolicydomain "github.com/smallbiznis/tutorbase/internal/customerpolicy/domain"
	insurerdomain "github.com/smallbiznis/tutorbase/internal/insurer/domain"
	policydomain "github.com/smallbiznis/tutorbase/internal/policy/domain"
	"github.com/stretchr/testify/require"
)

func (s *Stack) Insurer(t *testing.T, ctx context.Context, name, code string) insurerdomain.Insurer {
	t.Helper()
	req := insurerdomain.CreateInsurerRequest{Name: name}
	if code != "" {
		req.Code = &code
	}
	insurer, err := s.Insurers.Create(ctx, req)
	require.NoError(t, err)
	return insurer
}

func (s *Stack) Policy(t *testing.T, ctx context.Context, insurer insurerdomain.Insurer, name string, premium string, freq policydomain.Frequency, termMonths int) policydomain.Policy {
	t.Helper()
	req := policydomain.CreatePolicyRequest{
		InsurerID:        insurer.ID.String(),
		Name:             name,
		PremiumAmount:    decimal.RequireFromString(premium),
		PremiumFrequency: freq,
	}
	if termMonths > 0 {
		req.TermMonths = &termMonths
	}
	policy, err := s.Policies.Create(ctx, req)
	require.NoError(t, err)
	return policy
}

func (s *Stack) Customer(t *testing.T, ctx context.Context, name string) customerdomain.Customer {
	t.Helper()
	customer, err := s.Customers.Create(ctx, customerdomain.CreateCustomerRequest{Name: name})
	require.NoError(t, err)
	return customer
}

func (s *Stack) Binding(t *testing.T, ctx context.Context, customer customerdomain.Customer, policy policydomain.Policy, startDate string) customerpolicydomain.View {
	t.Helper()
	view, err := s.CustomerPolicy.Create(ctx, customerpolicydomain.CreateCustomerPolicyRequest{
		CustomerID: customer.ID.String(),
		PolicyID:   policy.ID.String(),
		StartDate:  startDate,
	})
	require.NoError(t, err)
	return view
}

// Catalog creates an insurer with one monthly policy and a customer, all
// owned by the actor in ctx.
func (s *Stack) Catalog(t *testing.T, ctx context.Context) (insurerdomain.Insurer, policydomain.Policy, customerdomain.Customer) {
	t.Helper()
	insurer := s.Insurer(t, ctx, "Acme Assurance", "ACM")
	policy := s.Policy(t, ctx, insurer, "Student Cover", "500.00", policydomain.FrequencyMonthly, 12)
	customer := s.Customer(t, ctx, "Asha Rao")
	return insurer, policy, customer
}
