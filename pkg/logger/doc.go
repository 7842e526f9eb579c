// Package logger builds the structured loggers used across filestorage.
//
// It extends log/slog with context attributes. Attach request-scoped values
// once with WithAttrs and every record logged with that context carries
// them, including the debug records storage handlers emit per operation:
//
//	log := logger.New(logger.Config{Format: logger.FormatText, Level: slog.LevelDebug})
//	store := filestorage.NewHandler(backend, filestorage.WithLogger(log))
//
//	ctx = logger.WithAttrs(ctx, slog.String("request_id", id))
//	name, err := store.SaveData(ctx, "a.txt", data)
//
// ContextExtractor functions pull attributes out of a context at log time
// for values stored by other packages.
//
// NewNope returns a logger that discards everything.
package logger
