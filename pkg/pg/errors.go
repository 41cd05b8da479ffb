package pg

import "errors"

var (
	ErrFailedToParseConfig    = errors.New("failed to parse database config")
	ErrFailedToOpenDB         = errors.New("failed to open database connection")
	ErrEmptyConnectionString  = errors.New("database connection string is empty")
	ErrFailedToPingDB         = errors.New("failed to ping database")
	ErrHealthcheckFailed      = errors.New("database healthcheck failed")
	ErrFailedToApplyMigration = errors.New("failed to apply database migration")
)
