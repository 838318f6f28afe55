package lifecycle

import "errors"

var (
	// ErrObligationClosed means a fulfill, complete or abandon arrived after the
	// obligation stopped accepting it.
	ErrObligationClosed  = errors.New("obligation is closed")
	ErrWrongKind         = errors.New("operation not supported for this kind of obligation")
	ErrInvalidDeadline   = errors.New("deadline is before creation time")
	ErrDeadlineLocked    = errors.New("deadline can no longer be changed")
	ErrInvalidTransition = errors.New("transition not allowed from current status")
)
