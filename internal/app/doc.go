// Package app wires the gradebook analyzer service together.
//
// New builds, in order: OpenTelemetry providers and business metrics, the
// in-memory session store, the gradebook and health services, and a chi
// router with the middleware chain and the /api and /metrics routes.
//
// Serve runs the HTTP server and the session janitor in one errgroup. When
// the context is cancelled the server is shut down gracefully, telemetry is
// flushed and every remaining session is discarded with the process.
//
// Usage:
//
//	application, err := app.NewApplication("")
//	if err != nil {
//		return err
//	}
//	return application.Run()
package app
