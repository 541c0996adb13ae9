package domain

import "errors"

var (
	// ErrMalformedEnvelope is returned when a frame is not a JSON envelope
	ErrMalformedEnvelope = errors.New("malformed envelope")

	// ErrMissingField is returned when a required payload field is absent
	ErrMissingField = errors.New("missing required field")

	// ErrInvalidField is returned when a field has the wrong shape
	ErrInvalidField = errors.New("invalid field")

	// ErrUnknownType is returned for message types the server does not handle
	ErrUnknownType = errors.New("unknown message type")
)
