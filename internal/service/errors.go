package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrAssignmentNotFound indicates the requested assignment does not exist.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrSubmissionNotFound indicates no submission exists for the student.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrSubmissionExpired indicates the due date passed and late work is not accepted.
	ErrSubmissionExpired = errors.New("submission period has expired")
	// ErrCourseAccessDenied indicates the caller lacks the required enrolment in the course.
	ErrCourseAccessDenied = errors.New("not enrolled in this course")
	// ErrNotificationNotFound indicates the notification does not belong to the user.
	ErrNotificationNotFound = errors.New("notification not found")
)

var errNotCourseStudent = newValidationError("user_id", "not a student in this course")

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// validationFromStruct converts validator output into a ValidationError.
func validationFromStruct(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return err
	}

	first := validationErrors[0]
	field := strings.ToLower(first.Field())
	message := fmt.Sprintf("failed on %s", first.Tag())
	if first.Param() != "" {
		message = fmt.Sprintf("failed on %s=%s", first.Tag(), first.Param())
	}
	return newValidationError(field, message)
}

// GradebookSyncError reports a gradebook push that failed after the
// submission change was committed. The local write is not rolled back.
type GradebookSyncError struct {
	AssignmentID uint
	UserID       uint
	Err          error
}

func (e *GradebookSyncError) Error() string {
	return fmt.Sprintf("gradebook sync failed for assignment %d user %d: %v", e.AssignmentID, e.UserID, e.Err)
}

func (e *GradebookSyncError) Unwrap() error {
	return e.Err
}

// NotificationError reports notification delivery failures that happened
// after the primary write was committed.
type NotificationError struct {
	Event string
	Err   error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification %s failed: %v", e.Event, e.Err)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

// IsPartialFailure reports whether err describes a follow-up failure where the
// primary write still succeeded.
func IsPartialFailure(err error) bool {
	var syncErr *GradebookSyncError
	var notifyErr *NotificationError
	return errors.As(err, &syncErr) || errors.As(err, &notifyErr)
}
