// Package shared holds helpers used by more than one package. Its testutil
// subpackage captures slog output and builds hourly input fixtures for tests.
package shared
