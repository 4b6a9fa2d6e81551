package services

import (
	"errors"
	"testing"

	"github.com/longtq2501/Tutor-Pro-sub001/internal/models"
)

func TestValidateTransitionAllowsSameState(t *testing.T) {
	for _, status := range models.AllLessonStatuses() {
		if err := ValidateTransition(status, status); err != nil {
			t.Fatalf("expected %s -> %s to be allowed, got %v", status, status, err)
		}
	}
}

func TestValidateTransitionTerminalStates(t *testing.T) {
	terminals := []models.LessonStatus{
		models.StatusPaid,
		models.StatusCancelledByStudent,
		models.StatusCancelledByTutor,
	}
	for _, from := range terminals {
		if !IsTerminal(from) {
			t.Fatalf("expected %s to be terminal", from)
		}
		for _, to := range models.AllLessonStatuses() {
			if to == from {
				continue
			}
			err := ValidateTransition(from, to)
			if err == nil {
				t.Fatalf("expected %s -> %s to be rejected", from, to)
			}
			var transitionErr *InvalidTransitionError
			if !errors.As(err, &transitionErr) {
				t.Fatalf("expected InvalidTransitionError, got %T", err)
			}
		}
	}
}

func TestValidateTransitionTable(t *testing.T) {
	cases := []struct {
		from    models.LessonStatus
		to      models.LessonStatus
		allowed bool
	}{
		{models.StatusScheduled, models.StatusConfirmed, true},
		{models.StatusScheduled, models.StatusCompleted, true},
		{models.StatusScheduled, models.StatusPaid, true},
		{models.StatusScheduled, models.StatusCancelledByStudent, true},
		{models.StatusScheduled, models.StatusCancelledByTutor, true},
		{models.StatusScheduled, models.StatusPendingPayment, false},
		{models.StatusConfirmed, models.StatusCompleted, true},
		{models.StatusConfirmed, models.StatusPaid, true},
		{models.StatusConfirmed, models.StatusCancelledByStudent, true},
		{models.StatusConfirmed, models.StatusCancelledByTutor, true},
		{models.StatusConfirmed, models.StatusScheduled, false},
		{models.StatusCompleted, models.StatusPaid, true},
		{models.StatusCompleted, models.StatusPendingPayment, true},
		{models.StatusCompleted, models.StatusScheduled, false},
		{models.StatusCompleted, models.StatusCancelledByTutor, false},
		{models.StatusPendingPayment, models.StatusPaid, true},
		{models.StatusPendingPayment, models.StatusCompleted, true},
		{models.StatusPendingPayment, models.StatusCancelledByStudent, false},
	}

	for _, tc := range cases {
		err := ValidateTransition(tc.from, tc.to)
		if tc.allowed && err != nil {
			t.Errorf("expected %s -> %s to be allowed, got %v", tc.from, tc.to, err)
		}
		if !tc.allowed && err == nil {
			t.Errorf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestAllowedNextReturnsCopy(t *testing.T) {
	first := AllowedNext(models.StatusScheduled)
	if len(first) == 0 {
		t.Fatal("expected SCHEDULED to have successors")
	}
	first[0] = models.StatusPaid

	second := AllowedNext(models.StatusScheduled)
	if second[0] != models.StatusConfirmed {
		t.Fatalf("expected the table to be unaffected by caller mutation, got %s", second[0])
	}
}

func TestInvalidTransitionErrorMessage(t *testing.T) {
	err := ValidateTransition(models.StatusPaid, models.StatusScheduled)
	if err == nil {
		t.Fatal("expected error")
	}

	var transitionErr *InvalidTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("expected InvalidTransitionError, got %T", err)
	}
	if transitionErr.From != models.StatusPaid || transitionErr.To != models.StatusScheduled {
		t.Fatalf("unexpected edge: %s -> %s", transitionErr.From, transitionErr.To)
	}
}
