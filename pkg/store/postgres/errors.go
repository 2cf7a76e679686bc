package postgres

import "errors"

var (
	// ErrFailedToParseConfig is returned when the connection string cannot be parsed.
	ErrFailedToParseConfig = errors.New("failed to parse postgres config")
	// ErrFailedToConnect is returned when all connection attempts are exhausted.
	ErrFailedToConnect = errors.New("failed to open postgres connection")
	// ErrFailedToApplyMigrations wraps goose failures.
	ErrFailedToApplyMigrations = errors.New("failed to apply migrations")
	// ErrMigrationsDirNotFound is returned when the migrations path does not exist.
	ErrMigrationsDirNotFound = errors.New("migrations directory not found")
)
