// Package services holds the application logic behind the HTTP API and the
// directory watcher.
//
// SeriesService turns input file names into aggregated series. It reads the
// file, keys a result cache on the BLAKE2b digest of the content plus the
// granularity, collapses concurrent identical requests, and persists each
// fresh result to the series store. HealthService reports liveness,
// readiness, and version.
package services
