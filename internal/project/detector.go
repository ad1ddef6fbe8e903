// Package project locates the directory a run takes its configuration from.
package project

import (
	"os"
	"path/filepath"
)

// Info describes where configuration was found.
type Info struct {
	Dir        string
	ConfigFile string
	HasEnv     bool
}

// FindConfigDir climbs from startPath to the filesystem root and returns the
// first directory holding one of the named files. When none is found the
// absolute start directory is returned with found == false.
func FindConfigDir(startPath string, names []string) (dir string, found bool, err error) {
	if startPath == "" {
		startPath = "."
	}
	absPath, err := filepath.Abs(startPath)
	if err != nil {
		return "", false, err
	}

	currentDir := absPath
	for {
		if firstExisting(currentDir, names) != "" {
			return currentDir, true, nil
		}

		parent := filepath.Dir(currentDir)
		if parent == currentDir {
			break
		}
		currentDir = parent
	}

	return absPath, false, nil
}

// Detect reports the config file and .env present in dir
func Detect(dir string, names []string) *Info {
	info := &Info{Dir: dir}
	if name := firstExisting(dir, names); name != "" {
		info.ConfigFile = filepath.Join(dir, name)
	}
	if fi, err := os.Stat(filepath.Join(dir, ".env")); err == nil && !fi.IsDir() {
		info.HasEnv = true
	}
	return info
}

// firstExisting returns the first name that exists as a regular file in dir
func firstExisting(dir string, names []string) string {
	for _, name := range names {
		fi, err := os.Stat(filepath.Join(dir, name))
		if err == nil && !fi.IsDir() {
			return name
		}
	}
	return ""
}
