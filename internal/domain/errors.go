package domain

import "errors"

// ErrNotFound is returned by repo and service functions when no itinerary
// document exists for the requested profile.
// Loads map it to an empty collection; deletes map it to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. a trip without days, a day index out of range).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")
