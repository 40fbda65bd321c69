package pipeline

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/andresuchdata/inventory-optimizer/internal/ingest"
	"github.com/andresuchdata/inventory-optimizer/internal/storage"
)

// DiscoverFiles lists the supported sales files directly inside dir, sorted
// by name.
func DiscoverFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !ingest.IsSupported(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// FetchObjects downloads every supported object under prefix into destDir.
func FetchObjects(ctx context.Context, store storage.ObjectStorage, prefix, destDir string) ([]string, error) {
	objects, err := store.ListObjects(ctx, prefix)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, obj := range objects {
		if !ingest.IsSupported(obj.Key) {
			continue
		}
		dest := filepath.Join(destDir, path.Base(obj.Key))
		if err := store.DownloadObject(ctx, obj.Key, dest); err != nil {
			return nil, err
		}
		files = append(files, dest)
	}
	sort.Strings(files)
	return files, nil
}
