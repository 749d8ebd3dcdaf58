package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks an inbound event that is malformed or references
	// entities that do not exist. The event is dropped; the connection
	// stays open and no response is sent.
	ErrValidation = errors.New("invalid chat event")

	// ErrUnknownUser is the referential flavor of ErrValidation: a
	// sender_id or receiver_id that resolves to no user.
	ErrUnknownUser = fmt.Errorf("%w: unknown user", ErrValidation)

	// ErrStorage marks a persistence failure. Processing of the single
	// offending event fails; later events may succeed if storage recovers.
	ErrStorage = errors.New("storage unavailable")
)
