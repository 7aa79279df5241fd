// Package store persists aggregated series in SQLite.
//
// Two tables hold the data: series (one row per input name and
// granularity) and series_points (the ordered points of each series).
// Saving a series replaces any earlier series with the same name and
// granularity inside a single transaction.
package store
