// Package postgres provides a backend that keeps files in a PostgreSQL table.
//
// Each file is one row of filestorage_files holding the payload as BYTEA
// together with its media type, size and timestamps. The table is created by
// Migrate, which applies embedded [github.com/pressly/goose/v3] migrations
// tracked in their own version table.
//
//	pool, err := postgres.Connect(ctx, postgres.ConnConfig{
//		ConnectionString: os.Getenv("DATABASE_URL"),
//	})
//	if err != nil {
//		return err
//	}
//	if err := postgres.Migrate(ctx, pool, logger); err != nil {
//		return err
//	}
//	backend, err := postgres.New(pool, postgres.Config{})
//
// Validation fails until the table exists.
package postgres
