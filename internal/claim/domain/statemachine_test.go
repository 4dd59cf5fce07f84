package domain

import (
	"errors"
	"testing"

	"github.com/smallbiznis/tutorbase/internal/errs"
	"github.com/stretchr/testify/assert"
)

func TestTransitionTable(t *testing.T) {
	allowed := map[Status][]Status{
		StatusDraft:       {StatusSubmitted},
		StatusSubmitted:   {StatusUnderReview, StatusDraft},
		StatusUnderReview: {StatusApproved, StatusRejected, StatusSubmitted},
		StatusApproved:    {StatusSettled, StatusUnderReview},
		StatusRejected:    {StatusUnderReview},
		StatusSettled:     nil,
	}

	for _, from := range Statuses {
		for _, to := range Statuses {
			want := false
			for _, next := range allowed[from] {
				if next == to {
					want = true
				}
			}
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)

			err := Transition(from, to)
			if want {
				assert.NoError(t, err)
				continue
			}
			assert.ErrorIs(t, err, errs.ErrInvalidTransition)
			var tErr *TransitionError
			if assert.True(t, errors.As(err, &tErr)) {
				assert.Equal(t, from, tErr.From)
				assert.Equal(t, to, tErr.To)
			}
		}
	}
}

func TestStatusHelpers(t *testing.T) {
	assert.True(t, StatusSettled.Terminal())
	assert.False(t, StatusRejected.Terminal())
	assert.False(t, Status("closed").Valid())
	assert.False(t, Status("closed").Terminal())

	assert.False(t, StatusDraft.Handled())
	assert.False(t, StatusSubmitted.Handled())
	assert.True(t, StatusUnderReview.Handled())
	assert.True(t, StatusSettled.Handled())

	next := StatusUnderReview.Next()
	next[0] = StatusDraft
	assert.Equal(t, StatusApproved, StatusUnderReview.Next()[0])

	assert.Equal(t, "invalid_transition", errs.CodeOf(Transition(StatusDraft, StatusSettled)))
}
