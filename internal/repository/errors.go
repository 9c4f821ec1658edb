// Package repository defines error types that are reused across the
// repositories in this package.  These sentinel values allow higher layers
// such as services to distinguish between failure scenarios without
// inspecting driver-specific errors.
package repository

import "errors"

// ErrEmailExists is returned when an insert or update would violate the
// unique index on users.email.  Services translate it into a duplicate
// email failure.
var ErrEmailExists = errors.New("email already exists")

// ErrUserNotFound is returned when no row matches the requested user.
var ErrUserNotFound = errors.New("user not found")

// mysqlDuplicateEntry is the MySQL error number for unique key violations.
const mysqlDuplicateEntry = 1062
