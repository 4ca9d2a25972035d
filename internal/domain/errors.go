package domain

import "errors"

var (
	// ErrNotFound is returned when a referenced entity id does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidLocation is returned when a location reference is missing or malformed
	ErrInvalidLocation = errors.New("invalid location")

	// ErrDuplicateIdentifier is returned when creating an entity whose id (or
	// open location) already exists
	ErrDuplicateIdentifier = errors.New("duplicate identifier")

	ErrInvalidPeriod         = errors.New("invalid period")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrInvalidAccident       = errors.New("invalid accident")
	ErrInvalidHotspot        = errors.New("invalid hotspot")
	ErrInvalidCountermeasure = errors.New("invalid countermeasure")

	// ErrNotCandidate is returned when promoting a location that screening
	// would not propose
	ErrNotCandidate = errors.New("not a screening candidate")
)
