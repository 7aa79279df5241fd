// Package config loads the service configuration.
//
// # Configuration Sources
//
// Values are layered, later sources winning:
//
//	1. Default()
//	2. YAML file: $CHEMO_CONFIG, or config.yaml / configs/config.yaml
//	3. Environment variables prefixed CHEMO_
//
// # Environment Variables
//
// Nested sections join with underscores:
//
//	CHEMO_SERVER_PORT=8080
//	CHEMO_LOGGING_FORMAT=text
//	CHEMO_DATA_INPUT_DIR=/srv/gml/hourly
//	CHEMO_WATCH_ENABLED=true
//	CHEMO_OBSERVABILITY_TRACE_EXPORTER=stdout
//
// The aggregate command-line tool does not read configuration.
package config
