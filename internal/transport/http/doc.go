// Package http implements the HTTP handlers of the series API. Handlers stay
// thin: they decode and validate requests, call the service layer and render
// either the JSON envelope or an RFC 7807 problem document.
//
// Routes, relative to /api:
//
//	GET  /health, /health/ready, /health/live, /version
//	GET  /series                       stored series summaries
//	GET  /series/files                 input files available for aggregation
//	POST /series/aggregate             {"file": ..., "granularity": ...}
//	POST /series/batch                 {"files": [...], "granularity": ...}
//	GET  /series/{granularity}/{file}  points, or a download with ?format=json|csv|xlsx
package http
