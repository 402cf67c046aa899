package ledger

import "errors"

// Precondition errors. Every mutating operation fails fast with exactly one
// of these, leaving state and balances untouched.

// Authorization errors.
var (
	ErrOnlyAdmin    = errors.New("only admin")
	ErrOnlyOwner    = errors.New("only task owner")
	ErrOnlyAssignee = errors.New("only task assignee")
	ErrOnlyMembers  = errors.New("only task members")
)

// State errors.
var (
	ErrOnlyNewTasks        = errors.New("only new tasks")
	ErrNotInProgress       = errors.New("task must be in progress")
	ErrNotCompleted        = errors.New("task must be completed")
	ErrNotCancelled        = errors.New("task must be cancelled")
	ErrAlreadyPaid         = errors.New("task already paid")
	ErrCompletionRequested = errors.New("completion already requested")
	ErrOnlyOpenClaims      = errors.New("only open claims")
	ErrAlreadyResolved     = errors.New("already resolved")
	ErrNotPaused           = errors.New("ledger is not paused")
)

// Value errors.
var (
	ErrZeroReward          = errors.New("reward can't be zero")
	ErrClaimTooHigh        = errors.New("claim too high")
	ErrRefundTooLarge      = errors.New("refund is too large")
	ErrAmountTooLarge      = errors.New("amount too large")
	ErrNoAmount            = errors.New("must give an amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidResolution   = errors.New("invalid resolution")
	ErrZeroFeeBase         = errors.New("fee base can't be zero")
	ErrFeeTooHigh          = errors.New("fee percent can't exceed fee base")
	ErrZeroAccount         = errors.New("account can't be zero")
)

// Availability and lookup errors.
var (
	ErrPaused        = errors.New("ledger is paused")
	ErrTaskNotFound  = errors.New("task not found")
	ErrClaimNotFound = errors.New("claim not found")
)

// IsAuthorization reports whether err is a wrong-role failure.
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrOnlyAdmin) || errors.Is(err, ErrOnlyOwner) ||
		errors.Is(err, ErrOnlyAssignee) || errors.Is(err, ErrOnlyMembers)
}

// IsState reports whether err is an invalid-for-current-status failure.
func IsState(err error) bool {
	for _, e := range []error{
		ErrOnlyNewTasks, ErrNotInProgress, ErrNotCompleted, ErrNotCancelled,
		ErrAlreadyPaid, ErrCompletionRequested, ErrOnlyOpenClaims,
		ErrAlreadyResolved, ErrNotPaused,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// IsValue reports whether err is a bad-argument failure.
func IsValue(err error) bool {
	for _, e := range []error{
		ErrZeroReward, ErrClaimTooHigh, ErrRefundTooLarge, ErrAmountTooLarge,
		ErrNoAmount, ErrInsufficientBalance, ErrInvalidResolution, ErrZeroFeeBase,
		ErrFeeTooHigh, ErrZeroAccount,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
