package postgres

import "errors"

var (
	ErrEmptyConnectionString = errors.New("postgres: empty connection string")
	ErrFailedToParseConfig   = errors.New("postgres: failed to parse connection configuration")
	ErrFailedToConnect       = errors.New("postgres: failed to open database connection")
	ErrSetDialect            = errors.New("postgres migrator: failed to set dialect")
	ErrApplyMigrations       = errors.New("postgres migrator: failed to apply migrations")
	ErrNilDB                 = errors.New("postgres: nil database")
	ErrNoData                = errors.New("postgres: no data to save")
	ErrFileTooLarge          = errors.New("postgres: file exceeds the size limit")
	ErrNoUniqueName          = errors.New("postgres: cannot find a unique filename")
	ErrNotFound              = errors.New("postgres: file not found")
)
