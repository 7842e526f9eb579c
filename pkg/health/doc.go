// Package health provides liveness and readiness probes for storage
// backends.
//
// FromContainer turns every bound store of a container tree into a named
// check. Backends holding a connection (redis, postgres) are checked with
// their Healthcheck method; the others answer an existence lookup.
//
//	checks := health.FromContainer(store)
//	r.Get("/health/live", health.LivenessHandler())
//	r.Get("/health/ready", health.ReadinessHandler(checks,
//	    health.WithTimeout(3*time.Second),
//	    health.WithLogger(log),
//	))
//
// Handlers answer in plain text ("OK" or "Service Unavailable") unless the
// client asks for JSON with an Accept header or ?format=json:
//
//	{
//	  "status": "unhealthy",
//	  "checks": {
//	    "store": {"status": "healthy"},
//	    "store['cache']": {"status": "unhealthy", "error": "connection refused"}
//	  }
//	}
//
// Run executes the checks without HTTP, for CLIs and startup gates.
package health
