// Package discovery resolves batch input arguments (plain paths or doublestar
// globs) into the tabular files that should be scored.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Format is the tabular format of an input file
type Format int

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatXLSX
)

// String returns the file extension of the format without the dot
func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatXLSX:
		return "xlsx"
	default:
		return "unknown"
	}
}

// DetectFormat determines the tabular format from a file name
func DetectFormat(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV
	case ".xlsx":
		return FormatXLSX
	default:
		return FormatUnknown
	}
}

// File is a discovered batch input file
type File struct {
	Path    string // absolute path
	RelPath string // path as matched, relative to the discovery root for globs
	Size    int64
	Format  Format
}

// FileDiscovery manages file discovery operations
type FileDiscovery struct {
	rootPath       string
	followSymlinks bool
}

// NewFileDiscovery creates a new FileDiscovery instance
func NewFileDiscovery(rootPath string, followSymlinks bool) *FileDiscovery {
	if rootPath == "" {
		rootPath = "."
	}
	return &FileDiscovery{
		rootPath:       rootPath,
		followSymlinks: followSymlinks,
	}
}

// Resolve expands every argument into input files.
// Arguments keep their order; matches of one glob are sorted lexically and
// files reached twice are reported once. An argument that yields nothing is an error.
func (fd *FileDiscovery) Resolve(args []string) ([]File, error) {
	var files []File
	seen := make(map[string]bool)

	for _, arg := range args {
		var found []File
		var err error
		if isGlob(arg) {
			found, err = fd.glob(arg)
		} else {
			var f File
			f, err = fd.literal(arg)
			found = []File{f}
		}
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("pattern %s matched no .csv or .xlsx files", arg)
		}

		for _, f := range found {
			if seen[f.Path] {
				continue
			}
			seen[f.Path] = true
			files = append(files, f)
		}
	}

	return files, nil
}

func isGlob(arg string) bool {
	return strings.ContainsAny(arg, "*?[{")
}

// glob evaluates a doublestar pattern; absolute patterns are split at their static prefix
func (fd *FileDiscovery) glob(pattern string) ([]File, error) {
	base := fd.rootPath
	pattern = filepath.ToSlash(pattern)
	if filepath.IsAbs(pattern) {
		base, pattern = doublestar.SplitPattern(pattern)
	}

	matches, err := doublestar.Glob(os.DirFS(base), pattern)
	if err != nil {
		return nil, fmt.Errorf("error evaluating pattern %s: %w", pattern, err)
	}
	sort.Strings(matches)

	var files []File
	for _, match := range matches {
		if f, ok := fd.processMatch(base, match); ok {
			files = append(files, f)
		}
	}
	return files, nil
}

// processMatch converts a glob match into a File, returning false if the match should be skipped.
func (fd *FileDiscovery) processMatch(base, match string) (File, bool) {
	if DetectFormat(match) == FormatUnknown {
		return File{}, false
	}
	fullPath := filepath.Join(base, filepath.FromSlash(match))

	linfo, err := os.Lstat(fullPath)
	if err != nil {
		return File{}, false
	}
	if linfo.Mode()&os.ModeSymlink != 0 && !fd.followSymlinks {
		return File{}, false
	}

	info, err := os.Stat(fullPath)
	if err != nil || info.IsDir() {
		return File{}, false
	}

	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return File{}, false
	}
	return File{
		Path:    absPath,
		RelPath: match,
		Size:    info.Size(),
		Format:  DetectFormat(match),
	}, true
}

// literal validates a plain path argument. Unlike glob matches, a literal
// path that is unusable is an error rather than silently skipped.
func (fd *FileDiscovery) literal(path string) (File, error) {
	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(fd.rootPath, path)
	}

	format := DetectFormat(path)
	if format == FormatUnknown {
		return File{}, fmt.Errorf("unsupported file type: %s. Batch input must be .csv or .xlsx", path)
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return File{}, fmt.Errorf("file not found: %s", path)
		}
		if os.IsPermission(err) {
			return File{}, fmt.Errorf("permission denied: %s", path)
		}
		return File{}, fmt.Errorf("cannot access file: %s: %w", path, err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("path is a directory, not a file: %s", path)
	}
	if info.Size() == 0 {
		return File{}, fmt.Errorf("file is empty: %s", path)
	}

	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return File{}, fmt.Errorf("invalid path %q: %w", path, err)
	}
	return File{
		Path:    absPath,
		RelPath: path,
		Size:    info.Size(),
		Format:  format,
	}, nil
}
