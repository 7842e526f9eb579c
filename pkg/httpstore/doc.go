// Package httpstore serves a storage container tree over HTTP with chi.
//
//	store := filestorage.New()
//	// bind handlers, then
//	if err := store.FinalizeConfig(ctx); err != nil {
//		return err
//	}
//
//	srv := httpstore.New(store,
//		httpstore.WithLogger(log),
//		httpstore.WithMetrics(metrics.Handler(nil)),
//	)
//	http.ListenAndServe(":8080", srv.Routes())
//
// Uploads go through the store's filter chain, so a rejected file answers
// 422 with the rejection code:
//
//	{"error": "file extension of \"a.gif\" is not allowed", "code": "invalid_extension", ...}
//
// Missing files, unknown stores and disabled stores answer 404. Backend and
// configuration failures answer 500 and are logged, not echoed.
package httpstore
