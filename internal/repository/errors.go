// Package repository holds the storage errors shared by every backend.
// Domain packages declare the repository interfaces they consume.
package repository

import "errors"

var (
	// ErrNotFound is returned when no row matches the tenant and key.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a row with the same key already exists.
	ErrConflict = errors.New("conflict: entity already exists")

	// ErrInvalidInput is returned for keys a backend refuses to store.
	ErrInvalidInput = errors.New("invalid input")
)
