// Package filestorage is a storage abstraction for uploaded files.
//
// Application code saves, checks and deletes files through a tree of named
// stores. Which medium backs each store (local disk, S3, Redis, Postgres or
// memory) is decided later, from configuration, and can differ per store.
//
// # Stores
//
// A StorageContainer is a node of the store tree. Children are created on
// first access, so packages can take references at init time:
//
//	var (
//	    Storage = filestorage.New()
//	    Avatars = Storage.MustStore("avatars")
//	)
//
// At startup the application binds handlers and finalizes the tree once.
// Finalization validates every bound handler and freezes the tree:
//
//	backend, err := local.New(local.Config{BasePath: "/srv/files", AutoMakeDir: true})
//	if err != nil {
//	    return err
//	}
//	if err := Storage.SetHandler(filestorage.NewHandler(backend,
//	    filestorage.WithBaseURL("https://cdn.example.com/"),
//	)); err != nil {
//	    return err
//	}
//	if err := Avatars.SetHandler(filestorage.NewHandler(memory.New(),
//	    filestorage.WithFilters(filters.ImageOnly(), filters.RandomizeFilename()),
//	)); err != nil {
//	    return err
//	}
//	if err := Storage.FinalizeConfig(ctx); err != nil {
//	    return err
//	}
//
// Package settings builds the same tree from flat key/value settings or
// YAML and TOML documents.
//
// A store is unset until a handler is bound, and disabled after Disable.
// Calls on either fail; HandlerState tells them apart.
//
// # Operations
//
// Containers, handlers and folders share the StorageHandler surface:
//
//	name, err := Avatars.SaveData(ctx, "me.png", data)
//	url, err := Avatars.URL(name)
//	ok, err := Avatars.Join("2024", "06").Exists(ctx, "me.png")
//
// Every operation has a blocking form and a non-blocking form returning a
// Future. Which forms a handler accepts follows its backend's Mode: a
// non-blocking backend also serves blocking calls unless
// WithAllowSyncMethods(false) is set.
//
// Saved files pass the handler's filters in order. Filters rename files,
// detect media types, or reject files with a *FileRejectedError that
// matches ErrFileNotAllowed. The stored name is returned because backends
// never overwrite: a taken name becomes "name-1.ext".
//
// # Errors
//
// Configuration problems are *ConfigError values matching ErrConfig and a
// more specific sentinel such as ErrNoHandler, ErrStoreDisabled,
// ErrFinalized or ErrModeMismatch.
package filestorage
