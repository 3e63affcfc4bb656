// Package repository implements raw-SQL data access over database/sql.
// This file defines sentinel errors shared across repositories so that
// handlers can map failure scenarios onto HTTP status codes without
// inspecting driver error strings themselves.
package repository

import "errors"

// ErrEmailExists is returned when registration hits the unique email key.
// Handlers translate this into HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrFilmNotFound is returned when a referenced film does not exist.
// Handlers translate this into HTTP 404.
var ErrFilmNotFound = errors.New("film not found")

// ErrAlreadyPurchased is returned when a (user, film) pair is already
// entitled under a different payment reference.  Handlers translate this
// into HTTP 409.  A repeat of the same reference is not an error; see
// PurchaseRepo.Create.
var ErrAlreadyPurchased = errors.New("film already purchased")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they are not entitled to.  Handlers translate this into 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation cannot proceed due to
// conflicting existing state.  Handlers translate this into 409.
var ErrConflict = errors.New("conflict")
