package domain

import (
	"fmt"

	"github.com/smallbiznis/tutorbase/internal/errs"
)

type Status string

const (
	StatusDraft       Status = "draft"
	StatusSubmitted   Status = "submitted"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
	StatusSettled     Status = "settled"
)

// Statuses lists every claim status in workflow order.
var Statuses = []Status{
	StatusDraft,
	StatusSubmitted,
	StatusUnderReview,
	StatusApproved,
	StatusRejected,
	StatusSettled,
}

var transitions = map[Status][]Status{
	StatusDraft:       {StatusSubmitted},
	StatusSubmitted:   {StatusUnderReview, StatusDraft},
	StatusUnderReview: {StatusApproved, StatusRejected, StatusSubmitted},
	StatusApproved:    {StatusSettled, StatusUnderReview},
	StatusRejected:    {StatusUnderReview},
	StatusSettled:     {},
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// Handled reports whether entering s records the acting user as handler.
func (s Status) Handled() bool {
	switch s {
	case StatusUnderReview, StatusApproved, StatusRejected, StatusSettled:
		return true
	default:
		return false
	}
}

// Next returns the statuses reachable from s in one step.
func (s Status) Next() []Status {
	out := make([]Status, len(transitions[s]))
	copy(out, transitions[s])
	return out
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates the move from -> to.
func Transition(from, to Status) error {
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

// TransitionError reports a move the workflow does not allow.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid claim transition from %q to %q", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == errs.ErrInvalidTransition
}

func (e *TransitionError) Code() string { return "invalid_transition" }
