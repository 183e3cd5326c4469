// Package repository implements the data access layer over a shared
// *sql.DB pool.  Sentinel errors declared here let handlers map failure
// scenarios onto HTTP statuses without inspecting driver errors: for
// example, ErrNotFound becomes a 404 and ErrForbidden a 403 when a
// doctor touches a row owned by someone else.
package repository

import "errors"

// ErrEmailExists is returned on registration when the normalized email
// already belongs to a doctor.  Handlers translate it into HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrNotFound is returned when an id does not resolve to a row within
// the caller's scope.  Handlers translate it into HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.  Handlers translate it into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrNoFields is returned by partial updates given a body that supplies
// none of the updatable fields.  Handlers translate it into HTTP 400.
var ErrNoFields = errors.New("no fields to update")
