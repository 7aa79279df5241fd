package config

import "time"

// Application constants
const (
	AppName     = "Chemosynthesis Series"
	ServiceName = "chemo-series"

	// EnvPrefix namespaces every environment variable: CHEMO_SERVER_PORT, ...
	EnvPrefix = "CHEMO"

	// Input files carry this extension
	InputFileExt = ".txt"

	DefaultCacheEntries     = 128
	DefaultBatchConcurrency = 4
	DefaultMaxBatchFiles    = 64
	DefaultWatchDebounce    = 500 * time.Millisecond

	DefaultRateLimitRPS   = 20
	DefaultRateLimitBurst = 40
)
