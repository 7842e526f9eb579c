// Package filters provides the built-in filters for filestorage handlers.
//
// Filters run in the order they are given to filestorage.WithFilters, after
// the filename has been sanitized and before the backend is called. Every
// filter here is safe in both call modes.
//
//	h := filestorage.NewHandler(backend, filestorage.WithFilters(
//		filters.ValidateExtension("jpg", "png"),
//		filters.MaxSize(5<<20),
//		filters.ImageOnly(),
//		filters.RandomizeFilename(),
//	))
//
// Rejections are *filestorage.FileRejectedError values that match
// filestorage.ErrFileNotAllowed; extension rejections also match
// filestorage.ErrExtensionNotAllowed.
package filters
