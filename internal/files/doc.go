// Package files locates hourly input files in the data directory.
//
// Discovery lists candidate files and resolves client-supplied names to
// paths, refusing anything that is not a plain file name inside the base
// directory.
package files
