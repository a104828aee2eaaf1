package replay

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"sdfterm/raymarch/internal/logging"
)

// RetentionPolicy bounds how many recorded runs stay on disk.
type RetentionPolicy struct {
	MaxRuns int
	MaxAge  time.Duration
}

// StorageStats summarises the recordings kept after a sweep.
type StorageStats struct {
	Runs    int
	Removed []string
	Bytes   int64
}

type bundleDir struct {
	name    string
	path    string
	size    int64
	modTime time.Time
}

// Prune removes bundle directories under root that break policy, newest kept first.
func Prune(root string, policy RetentionPolicy, now time.Time, logger *logging.Logger) (StorageStats, error) {
	if logger == nil {
		logger = logging.L()
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return StorageStats{}, nil
		}
		return StorageStats{}, err
	}

	//1.- Only directories carrying a manifest count as recordings.
	var bundles []bundleDir
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(root, entry.Name())
		info, err := os.Stat(filepath.Join(path, manifestFile))
		if err != nil {
			continue
		}
		size, err := directorySize(path)
		if err != nil {
			logger.Warn("replay retention size failed", logging.Error(err), logging.String("path", path))
			continue
		}
		bundles = append(bundles, bundleDir{name: entry.Name(), path: path, size: size, modTime: info.ModTime()})
	}
	sort.Slice(bundles, func(i, j int) bool { return bundles[i].modTime.After(bundles[j].modTime) })

	//2.- Age is checked before the count so expired runs never occupy a slot.
	var stats StorageStats
	var errs error
	for _, bundle := range bundles {
		var reasons []string
		if policy.MaxAge > 0 && now.Sub(bundle.modTime) > policy.MaxAge {
			reasons = append(reasons, fmt.Sprintf("age>%s", policy.MaxAge))
		}
		if policy.MaxRuns > 0 && stats.Runs >= policy.MaxRuns {
			reasons = append(reasons, fmt.Sprintf(">=%d runs", policy.MaxRuns))
		}
		if len(reasons) == 0 {
			stats.Runs++
			stats.Bytes += bundle.size
			continue
		}
		if err := os.RemoveAll(bundle.path); err != nil {
			errs = errors.Join(errs, err)
			stats.Runs++
			stats.Bytes += bundle.size
			continue
		}
		stats.Removed = append(stats.Removed, bundle.name)
		logger.Info("replay retention removed run", logging.String("run", bundle.name), logging.String("reason", strings.Join(reasons, ", ")))
	}
	return stats, errs
}

func directorySize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
