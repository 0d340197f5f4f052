package tierledger

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("tierledger: not found")
	ErrAlreadyExists = errors.New("tierledger: already exists")
	ErrInvalidInput  = errors.New("tierledger: invalid input")

	// Transition errors
	ErrInvalidLevel        = errors.New("tierledger: invalid level")
	ErrInvalidDuration     = errors.New("tierledger: invalid duration")
	ErrDowngradeForbidden  = errors.New("tierledger: downgrade forbidden")
	ErrNoSuchPlan          = errors.New("tierledger: no such plan")
	ErrDurationTooShort    = errors.New("tierledger: duration shorter than remaining days")
	ErrInsufficientBalance = errors.New("tierledger: insufficient balance")

	// Distribution errors
	ErrQuotaExceeded    = errors.New("tierledger: daily quota exceeded")
	ErrNoItemsAvailable = errors.New("tierledger: no items available")

	// Entity errors
	ErrUserNotFound    = errors.New("tierledger: user not found")
	ErrItemNotFound    = errors.New("tierledger: item not found")
	ErrReceiptNotFound = errors.New("tierledger: receipt not found")
	ErrInvalidFeedback = errors.New("tierledger: feedback must be +1 or -1")

	// Store errors
	ErrStorageConflict   = errors.New("tierledger: storage conflict")
	ErrTransactionFailed = errors.New("tierledger: transaction failed")
	ErrStoreClosed       = errors.New("tierledger: store is closed")
	ErrMigrationFailed   = errors.New("tierledger: migration failed")
)

// InsufficientBalanceError reports the points a purchase needs.
// It matches ErrInsufficientBalance with errors.Is.
type InsufficientBalanceError struct {
	Required  int64
	Available int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("tierledger: insufficient balance: need %d points, have %d", e.Required, e.Available)
}

// Is reports whether target is ErrInsufficientBalance.
func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

// QuotaExceededError reports the daily cap a delivery ran into.
// It matches ErrQuotaExceeded with errors.Is.
type QuotaExceededError struct {
	Cap  int
	Used int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("tierledger: daily quota exceeded: %d of %d used", e.Used, e.Cap)
}

// Is reports whether target is ErrQuotaExceeded.
func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
	// Err is the sentinel the failure maps to, if any.
	Err error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("tierledger: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel.
func (e ValidationError) Unwrap() error { return e.Err }

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrItemNotFound) ||
		errors.Is(err, ErrReceiptNotFound)
}

// IsRejection returns true if the error is a business-rule refusal that
// should be shown to the user as-is.
func IsRejection(err error) bool {
	return errors.Is(err, ErrInvalidLevel) ||
		errors.Is(err, ErrInvalidDuration) ||
		errors.Is(err, ErrDowngradeForbidden) ||
		errors.Is(err, ErrNoSuchPlan) ||
		errors.Is(err, ErrDurationTooShort) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrQuotaExceeded) ||
		errors.Is(err, ErrNoItemsAvailable) ||
		errors.Is(err, ErrInvalidFeedback)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageConflict) ||
		errors.Is(err, ErrTransactionFailed)
}
