// Package source locates and streams the tabular exports the analytics
// engine scans: dated CSV files laid out by a directory-and-filename
// convention, or the equivalent rows served from Postgres.
package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrDataUnavailable is returned when no export file exists for the
	// requested date and category. It is a resolution failure, not a
	// parse error.
	ErrDataUnavailable = errors.New("data unavailable")
)

// Export naming convention: files live under a category directory and are
// named <YYYYMMDD>..._<suffix>.
const (
	sessionsTotalDir  = "Sessions_Total"
	sessionsDirPrefix = "Sessions_"
	trajectoryDir     = "Trajectory"

	sessionSuffix    = "_sessions_final.csv"
	trajectorySuffix = "_finaltraj.csv"

	dateKeyLen = 8
)

// Resolver maps a date key and category to a single export file under the
// data root.
type Resolver struct {
	root string
}

// NewResolver creates a resolver rooted at the export data directory.
func NewResolver(root string) *Resolver {
	return &Resolver{root: root}
}

// SessionFile resolves the session export for a date. An empty building
// selects the campus-wide Sessions_Total category; otherwise the
// building-specific Sessions_<building> directory is searched.
func (r *Resolver) SessionFile(dateKey, building string) (string, error) {
	dir := sessionsTotalDir
	if building != "" {
		dir = sessionsDirPrefix + building
	}
	return r.find(dir, dateKey, sessionSuffix)
}

// TrajectoryFile resolves the trajectory export for a date.
func (r *Resolver) TrajectoryFile(dateKey string) (string, error) {
	return r.find(trajectoryDir, dateKey, trajectorySuffix)
}

// find scans one category directory for a file whose name starts with the
// date key and carries the category suffix.
func (r *Resolver) find(dir, dateKey, suffix string) (string, error) {
	if len(dateKey) != dateKeyLen {
		return "", fmt.Errorf("%w: bad date key %q", ErrDataUnavailable, dateKey)
	}

	path := filepath.Join(r.root, dir)
	entries, err := os.ReadDir(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrDataUnavailable, dir)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, suffix) {
			continue
		}
		if strings.HasPrefix(name, dateKey) {
			return filepath.Join(path, name), nil
		}
	}
	return "", fmt.Errorf("%w: no %s export for %s", ErrDataUnavailable, dir, dateKey)
}
