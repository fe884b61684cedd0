package schedule

import (
	"time"

	"github.com/google/uuid"
)

// ExceptionDay blocks a whole calendar day. A nil ProviderID applies to every provider.
type ExceptionDay struct {
	ID         uuid.UUID
	Date       time.Time
	ProviderID *uuid.UUID
	Reason     string
}

// Applies reports whether the exception removes availability for providerID on date.
func (e ExceptionDay) Applies(date time.Time, providerID uuid.UUID) bool {
	if !DateOf(e.Date).Equal(DateOf(date)) {
		return false
	}
	return e.ProviderID == nil || *e.ProviderID == providerID
}

// ExceptionRegistry is the set of exception days visible to one calculation.
type ExceptionRegistry []ExceptionDay

// Blocks reports whether any exception applies to (date, providerID).
func (r ExceptionRegistry) Blocks(date time.Time, providerID uuid.UUID) bool {
	for _, e := range r {
		if e.Applies(date, providerID) {
			return true
		}
	}
	return false
}

// Reason returns the reason of the first applicable exception.
func (r ExceptionRegistry) Reason(date time.Time, providerID uuid.UUID) (string, bool) {
	for _, e := range r {
		if e.Applies(date, providerID) {
			return e.Reason, true
		}
	}
	return "", false
}
