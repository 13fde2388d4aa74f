package booking

import "errors"

// The full failure taxonomy of the scheduling module. Every failure path
// returns one of these (possibly wrapped); callers branch with errors.Is.
var (
	ErrInvalidDate        = errors.New("date is malformed or in the past")
	ErrInvalidSlot        = errors.New("time is not a bookable slot")
	ErrInvalidService     = errors.New("service is not offered")
	ErrSlotTaken          = errors.New("slot is already booked")
	ErrUnauthenticated    = errors.New("no authenticated profile")
	ErrStorageUnavailable = errors.New("appointment store unavailable")
)
