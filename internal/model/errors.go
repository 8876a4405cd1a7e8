package model

import "errors"

var (
	ErrInvalidConfiguration   = errors.New("invalid configuration")
	ErrInvalidSlot            = errors.New("invalid slot")
	ErrInvalidRequest         = errors.New("invalid request")
	ErrConflict               = errors.New("slot is already booked")
	ErrTimeout                = errors.New("store timeout")
	ErrNotFound               = errors.New("not found")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrShopClosed             = errors.New("shop is closed")
)

// IsRetryable reports whether the caller may safely repeat the operation.
// Booking retries are safe because the store rejects duplicate slots.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// ErrorCode returns a stable machine-readable code for err.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidConfiguration):
		return "invalid_configuration"
	case errors.Is(err, ErrInvalidSlot):
		return "invalid_slot"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrConcurrentModification):
		return "concurrent_modification"
	case errors.Is(err, ErrShopClosed):
		return "shop_closed"
	default:
		return "internal"
	}
}
