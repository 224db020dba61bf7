// Package discover lists the image files a run will process.
package discover

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"
)

// DefaultSkipPrefix prunes prior output folders from discovery.
const DefaultSkipPrefix = "_groups"

var imageExts = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
}

// Options controls a discovery pass.
type Options struct {
	// Recurse descends into subdirectories.
	Recurse bool
	// SkipDirPrefix prunes directories whose base name starts with it.
	// Empty means DefaultSkipPrefix.
	SkipDirPrefix string
}

// IsImagePath reports whether the path carries a supported image extension.
func IsImagePath(path string) bool {
	_, ok := imageExts[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Images returns the absolute paths of all image files under root, sorted.
// Root may be a single image file. Directories named like prior output
// folders are pruned during recursive descent.
func Images(root string, opts Options) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}

	if !info.IsDir() {
		if IsImagePath(absRoot) {
			return []string{absRoot}, nil
		}
		return nil, nil
	}

	skipPrefix := opts.SkipDirPrefix
	if skipPrefix == "" {
		skipPrefix = DefaultSkipPrefix
	}

	var found []string
	if opts.Recurse {
		err = godirwalk.Walk(absRoot, &godirwalk.Options{
			Unsorted: true,
			Callback: func(path string, de *godirwalk.Dirent) error {
				if de.IsDir() {
					if path != absRoot && strings.HasPrefix(de.Name(), skipPrefix) {
						return godirwalk.SkipThis
					}
					return nil
				}
				if IsImagePath(path) {
					found = append(found, path)
				}
				return nil
			},
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", absRoot, err)
		}
	} else {
		entries, err := os.ReadDir(absRoot)
		if err != nil {
			return nil, fmt.Errorf("read dir %s: %w", absRoot, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if IsImagePath(entry.Name()) {
				found = append(found, filepath.Join(absRoot, entry.Name()))
			}
		}
	}

	sort.Strings(found)
	return found, nil
}
