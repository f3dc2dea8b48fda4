package domain

import "time"

// List of tolerance reason codes
const (
	ReasonNoSchedule     ToleranceReason = "no_schedule"
	ReasonTooEarly       ToleranceReason = "too_early"
	ReasonTooLate        ToleranceReason = "too_late"
	ReasonEarlyTolerance ToleranceReason = "early_tolerance"
	ReasonLateTolerance  ToleranceReason = "late_tolerance"
	ReasonWithinWindow   ToleranceReason = "within_window"
)

// ToleranceReason explains why an action against a pickup window is
// allowed or rejected at a given instant.
type ToleranceReason string

// ToleranceDecision is the outcome of evaluating a pickup window against a
// point in time. Boundaries are zero when no schedule is known.
type ToleranceDecision struct {
	Allowed       bool
	Reason        ToleranceReason
	EarlyBoundary time.Time
	LateBoundary  time.Time
}

// EvaluateTolerance decides whether an action is permitted at `now` given a
// pickup window widened by the early and late tolerance margins.
// A nil window fails open: a donation with no schedule data is never blocked.
func EvaluateTolerance(now time.Time, w *PickupWindow, early, late time.Duration) ToleranceDecision {
	if w == nil {
		return ToleranceDecision{Allowed: true, Reason: ReasonNoSchedule}
	}

	start, end := w.Bounds()
	d := ToleranceDecision{
		EarlyBoundary: start.Add(-early),
		LateBoundary:  end.Add(late),
	}

	switch {
	case now.Before(d.EarlyBoundary):
		d.Reason = ReasonTooEarly
	case now.After(d.LateBoundary):
		d.Reason = ReasonTooLate
	case now.Before(start):
		d.Allowed = true
		d.Reason = ReasonEarlyTolerance
	case now.After(end):
		d.Allowed = true
		d.Reason = ReasonLateTolerance
	default:
		d.Allowed = true
		d.Reason = ReasonWithinWindow
	}
	return d
}
