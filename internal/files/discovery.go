package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrInvalidName is returned by Resolve for names that would escape the data directory.
var ErrInvalidName = errors.New("invalid file name")

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string    `json:"-"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Discovery provides file discovery operations
type Discovery struct {
	basePath string
	ext      string
}

// NewDiscovery creates a discovery rooted at basePath matching files with ext (e.g. ".txt").
func NewDiscovery(basePath, ext string) *Discovery {
	return &Discovery{basePath: basePath, ext: strings.ToLower(ext)}
}

// BasePath returns the directory names are resolved against.
func (d *Discovery) BasePath() string {
	return d.basePath
}

// FindInputFiles lists input files in dir, sorted by name. A relative dir
// is taken under the base path; an empty dir means the base path itself.
func (d *Discovery) FindInputFiles(dir string) ([]FileInfo, error) {
	fullPath := dir
	if !filepath.IsAbs(dir) {
		fullPath = filepath.Join(d.basePath, dir)
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !d.Matches(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})
	return files, nil
}

// Matches reports whether name carries the discovery extension.
func (d *Discovery) Matches(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), d.ext)
}

// Resolve maps a bare file name to its path under the base directory.
// Names containing separators, "..", or absolute paths are rejected.
func (d *Discovery) Resolve(name string) (string, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || filepath.IsAbs(name) ||
		filepath.VolumeName(name) != "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(d.basePath, name), nil
}
