// Package app wires the series service together: configuration, logging,
// OpenTelemetry, the SQLite series store, the aggregation and health
// services, the optional input directory watcher and the chi router.
//
// # Lifecycle
//
//	app, err := app.NewApplication()
//	if err != nil { ... }
//	return app.Run() // blocks until SIGINT or SIGTERM, then shuts down
//
// Stop shuts the HTTP server down within Server.ShutdownTimeout, then stops
// the watcher, closes the store and flushes the telemetry providers.
package app
