// Package policy holds the time-window rules that decide when a video
// assignment accepts submissions and whether a student may resubmit.
package policy

import (
	"fmt"
	"time"

	"github.com/noah-isme/vidassign-api/internal/models"
)

const day = 24 * time.Hour

// IsExpired reports whether the due date has passed.
func IsExpired(a models.Assignment, now time.Time) bool {
	return a.HasDueDate() && now.After(*a.TimeDue)
}

// IsOpen reports whether the availability window has started.
func IsOpen(a models.Assignment, now time.Time) bool {
	return !a.HasAvailableDate() || now.After(*a.TimeAvailable)
}

// SubmitDisabled reports whether the submit action must be hidden.
func SubmitDisabled(a models.Assignment, now time.Time) bool {
	return !IsOpen(a, now) || (IsExpired(a, now) && a.PreventLate)
}

// CanResubmit decides whether the student may replace their current media.
//
// A missing grade allows replacement even when resubmission is disabled.
func CanResubmit(a models.Assignment, now time.Time, hasMedia, hasGrade bool) bool {
	if (IsExpired(a, now) && a.PreventLate) || !IsOpen(a, now) {
		return false
	}
	if !hasMedia {
		return true
	}
	if !hasGrade {
		return true
	}
	return a.AllowResubmit
}

// CanResubmitSubmission applies CanResubmit to a possibly missing submission.
func CanResubmitSubmission(a models.Assignment, now time.Time, submission *models.Submission) bool {
	if submission == nil {
		return CanResubmit(a, now, false, false)
	}
	return CanResubmit(a, now, submission.HasMedia(), submission.HasGrade())
}

// AcceptingSubmissions is the course overview rule. With a due date the
// window runs from the available date to the due date, and stays open
// unconditionally when late work is allowed. Without one, only the available
// date matters.
func AcceptingSubmissions(a models.Assignment, now time.Time) bool {
	started := !a.HasAvailableDate() || !now.Before(*a.TimeAvailable)
	if !a.HasDueDate() {
		return started
	}
	if !a.PreventLate {
		return true
	}
	return started && !now.After(*a.TimeDue)
}

// Remaining describes the time left before a due date.
type Remaining struct {
	Closed  bool `json:"closed"`
	Days    int  `json:"days"`
	Hours   int  `json:"hours"`
	Minutes int  `json:"minutes"`
}

// String renders the remaining time as "N day(s) HH:MM" or "closed".
func (r Remaining) String() string {
	if r.Closed {
		return "closed"
	}
	clock := fmt.Sprintf("%02d:%02d", r.Hours, r.Minutes)
	if r.Days > 0 {
		return fmt.Sprintf("%d day(s) %s", r.Days, clock)
	}
	return clock
}

// RemainingTime computes the time left until dueAt. Days are only split out
// when more than a full day remains.
func RemainingTime(dueAt, now time.Time) Remaining {
	if now.After(dueAt) {
		return Remaining{Closed: true}
	}

	diff := dueAt.Sub(now)
	result := Remaining{}
	if diff > day {
		result.Days = int(diff / day)
		diff -= time.Duration(result.Days) * day
	}
	result.Hours = int(diff / time.Hour)
	diff -= time.Duration(result.Hours) * time.Hour
	result.Minutes = int(diff / time.Minute)

	return result
}

// Lateness is the signed distance between submission and due date.
type Lateness struct {
	Late     bool          `json:"late"`
	Duration time.Duration `json:"duration"`
}

// ComputeLateness returns how early or late submittedAt was relative to dueAt.
// ok is false when either timestamp is missing.
func ComputeLateness(submittedAt int64, dueAt *time.Time) (Lateness, bool) {
	if submittedAt <= 0 || dueAt == nil || dueAt.IsZero() {
		return Lateness{}, false
	}

	diff := dueAt.Sub(time.Unix(submittedAt, 0))
	if diff < 0 {
		return Lateness{Late: true, Duration: -diff}, true
	}
	return Lateness{Duration: diff}, true
}

// IsLateSubmission reports whether the last submission change happened after the due date.
func IsLateSubmission(a models.Assignment, s models.Submission) bool {
	return a.HasDueDate() && s.UpdatedAt > a.TimeDue.Unix()
}
