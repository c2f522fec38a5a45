package schedule

import "errors"

var (
	// ErrInvalidConfiguration marks a task whose schedule cannot be generated.
	// It is never retried.
	ErrInvalidConfiguration = errors.New("invalid task configuration")

	ErrNotYetStarted    = errors.New("period has not started yet")
	ErrAlreadyCompleted = errors.New("period already completed")
	ErrTaskInactive     = errors.New("task is inactive")
)

// IsRejection reports whether err is one of the business-rule rejections a
// user can trigger through normal use.
func IsRejection(err error) bool {
	return errors.Is(err, ErrNotYetStarted) ||
		errors.Is(err, ErrAlreadyCompleted) ||
		errors.Is(err, ErrTaskInactive)
}
