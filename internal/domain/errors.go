package domain

import "errors"

// ErrNotFound is returned when the requested resource does not exist, either
// in durable storage (missing key) or in a manager's in-memory collection.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. star rating outside 0-5, non-positive product id).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrRemote is returned when the remote API could not be reached or answered
// with a non-2xx status.
var ErrRemote = errors.New("remote unavailable")

// ErrMalformed is returned when the remote API answered 2xx but the body was
// not valid JSON or not the expected shape.
var ErrMalformed = errors.New("malformed remote payload")

// ErrRejected is returned when the remote API answered 2xx with
// {"success": false}.
var ErrRejected = errors.New("rejected by remote")

// ErrBusy is returned when a mutation is attempted on a place that already
// has a mutation in flight. Handlers should map this to HTTP 409.
var ErrBusy = errors.New("mutation in progress")
