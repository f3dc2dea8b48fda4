package apperr

import "errors"

// ErrInvalid is returned when the input fails domain validation.
var ErrInvalid = errors.New("invalid input")

// ErrNotFound indicates that the requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrOfferNotAvailable indicates the offer is in a status that cannot be claimed.
var ErrOfferNotAvailable = errors.New("offer not available")

// ErrAlreadyClaimed indicates another receiver already holds the active claim.
var ErrAlreadyClaimed = errors.New("already claimed")

// ErrSelfClaim indicates a donor tried to claim their own offer.
var ErrSelfClaim = errors.New("self claim forbidden")

// ErrUnauthorized indicates the caller does not own the resource being mutated.
var ErrUnauthorized = errors.New("unauthorized")

// ErrInvalidTransition indicates a status change outside the offer state table.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrCodeMismatch indicates the submitted pickup code does not match the issued one.
var ErrCodeMismatch = errors.New("pickup code mismatch")

// ErrOutsideWindow indicates the action falls outside the tolerated pickup window.
var ErrOutsideWindow = errors.New("outside pickup window")
