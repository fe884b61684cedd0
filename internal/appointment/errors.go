package appointment

import (
	"errors"

	"github.com/hackgods/clinic-booking-engine/internal/schedule"
)

var (
	ErrSlotTaken           = errors.New("slot already has a live appointment")
	ErrLimitExceeded       = errors.New("patient already has a live appointment with this provider")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrStoreUnavailable    = errors.New("appointment store unavailable")
	ErrNotFound            = errors.New("not found")
	ErrAppointmentNotFound = notFound("appointment not found")
	ErrProviderNotFound    = schedule.ErrProviderNotFound
	ErrSlotUnavailable     = errors.New("slot is not offered by the provider schedule")
	ErrInvalidRequest      = errors.New("invalid booking request")

	// ErrTxConflict is returned by stores when the reservation transaction lost
	// a serialization race. The coordinator retries it.
	ErrTxConflict = errors.New("reservation transaction conflict")

	// ErrStaleStatus is returned by conditional updates when the stored status
	// no longer matches the expected one.
	ErrStaleStatus = errors.New("appointment status changed concurrently")
)

type notFoundError string

func notFound(msg string) error { return notFoundError(msg) }

func (e notFoundError) Error() string { return string(e) }

func (e notFoundError) Is(target error) bool { return target == ErrNotFound }

const (
	CodeSlotTaken         = "SLOT_TAKEN"
	CodeLimitExceeded     = "LIMIT_EXCEEDED"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeStoreUnavailable  = "STORE_UNAVAILABLE"
	CodeNotFound          = "NOT_FOUND"
	CodeSlotUnavailable   = "SLOT_UNAVAILABLE"
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeInternal          = "INTERNAL"
)

// Code maps err onto the caller-facing error taxonomy. A nil error has no code.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSlotTaken):
		return CodeSlotTaken
	case errors.Is(err, ErrLimitExceeded):
		return CodeLimitExceeded
	case errors.Is(err, ErrInvalidTransition):
		return CodeInvalidTransition
	case errors.Is(err, ErrStoreUnavailable):
		return CodeStoreUnavailable
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrProviderNotFound):
		return CodeNotFound
	case errors.Is(err, ErrSlotUnavailable):
		return CodeSlotUnavailable
	case errors.Is(err, ErrInvalidRequest):
		return CodeInvalidRequest
	}
	return CodeInternal
}
