package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"shootsort/internal/config"
	"shootsort/internal/geocode"
	"shootsort/internal/runlog"
)

// CheckReadableTree verifies the input path exists and can be read. A
// directory additionally needs search permission so discovery can descend.
func CheckReadableTree(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}

	mode := uint32(unix.R_OK)
	if info.IsDir() {
		mode |= unix.X_OK
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (readable)", path)}
}

// CheckWritableTarget verifies that path either is a writable directory or
// can be created, by walking up to its nearest existing ancestor and
// requiring write permission there.
func CheckWritableTarget(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "no path configured"}
	}

	probe := path
	for {
		info, err := os.Stat(probe)
		if err == nil {
			if !info.IsDir() {
				return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s is not a directory)", path, probe)}
			}
			if err := unix.Access(probe, unix.W_OK|unix.X_OK); err != nil {
				return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s not writable: %v)", path, probe, err)}
			}
			if probe == path {
				return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (writable)", path)}
			}
			return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created under %s)", path, probe)}
		}
		if !os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat %s: %v)", path, probe, err)}
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: no existing ancestor)", path)}
		}
		probe = parent
	}
}

// CheckHistory verifies the run-history database opens, which also
// validates its schema version.
func CheckHistory(cfg *config.Config) Result {
	const name = "Run history"

	store, err := runlog.Open(cfg)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	defer store.Close()
	return Result{Name: name, Passed: true, Detail: store.Path()}
}

// CheckGeocoder verifies the reverse-geocoding endpoint answers its status
// probe. A single attempt with a short timeout; no retries.
func CheckGeocoder(ctx context.Context, cfg *config.Config) Result {
	const name = "Geocoder"

	client := geocode.NewClient(cfg, nil)
	defer client.Close()

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Probe(checkCtx); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: cfg.Geocode.BaseURL}
}
