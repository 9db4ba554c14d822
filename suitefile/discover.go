package suitefile

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultRoot is searched when no paths are given
const DefaultRoot = "test"

// Suffixes are the file name endings that mark suite files
var Suffixes = []string{"_test.yaml", "_test.yml"}

// Denylist holds base-name patterns that are never loaded, even when named
// explicitly or reached through a named path. Directories matching a pattern
// are not descended into.
var Denylist = []string{
	".*",
	"vendor",
	"node_modules",
	"*_disabled_test.yaml",
	"*_disabled_test.yml",
}

// Denied reports whether a base name matches the denylist
func Denied(name string) bool {
	for _, pattern := range Denylist {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// IsSuiteFile reports whether a file name carries a suite file suffix
func IsSuiteFile(name string) bool {
	for _, suffix := range Suffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// Discover expands paths into suite files. Directories are walked for files
// with a suite suffix; files are taken as they are. With no paths, root is
// walked. Denied entries are dropped. The result keeps argument order, files
// found under one directory are sorted, and duplicates are removed.
func Discover(paths []string, root string) ([]string, error) {
	if len(paths) == 0 {
		if root == "" {
			root = DefaultRoot
		}
		paths = []string{root}
	}

	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("suite path: %w", err)
		}
		if deniedPath(p) {
			continue
		}
		if !info.IsDir() {
			add(p)
			continue
		}

		var found []string
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != p && Denied(d.Name()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.IsDir() && IsSuiteFile(d.Name()) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", p, err)
		}
		sort.Strings(found)
		for _, f := range found {
			add(f)
		}
	}
	return out, nil
}

// deniedPath reports whether an argument path, or any directory on the way
// to it from the working directory, is denied. Outside the working
// directory only the final element is checked.
func deniedPath(p string) bool {
	rel := filepath.Clean(p)
	if filepath.IsAbs(rel) {
		rel = filepath.Base(rel)
		if wd, err := os.Getwd(); err == nil {
			if r, err := filepath.Rel(wd, p); err == nil && !escapes(r) {
				rel = r
			}
		}
	}
	for _, elem := range strings.Split(filepath.ToSlash(rel), "/") {
		if elem == "." || elem == ".." || elem == "" {
			continue
		}
		if Denied(elem) {
			return true
		}
	}
	return false
}

func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
