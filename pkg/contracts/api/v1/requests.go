// Package api contains the HTTP API contracts of the series service.
// Version v1 represents the current stable API version.
package api

// AggregateRequest asks for one input file to be aggregated.
type AggregateRequest struct {
	File        string `json:"file" validate:"required,filename"`
	Granularity string `json:"granularity" validate:"required,granularity"`
}

// BatchRequest asks for several input files to be aggregated at the same granularity.
type BatchRequest struct {
	Files       []string `json:"files" validate:"required,min=1,max=256,dive,filename"`
	Granularity string   `json:"granularity" validate:"required,granularity"`
}

// SeriesQuery holds the query parameters of a series download.
type SeriesQuery struct {
	Format string `json:"format" validate:"omitempty,oneof=json csv xlsx"`
}
