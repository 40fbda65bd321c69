package drive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/inventory-optimizer/internal/ingest"
)

// FileSource is the part of the Drive API the Downloader needs.
type FileSource interface {
	ListFiles(ctx context.Context, folderID string) ([]*File, error)
	DownloadFile(ctx context.Context, fileID string, w io.Writer) error
	ExportSpreadsheet(ctx context.Context, fileID string, w io.Writer) error
}

// DownloadOptions controls how files are pulled from Google Drive.
type DownloadOptions struct {
	FolderID    string
	DownloadDir string
}

// Downloader pulls sales files from one Drive folder.
type Downloader struct {
	source FileSource
}

func NewDownloader(s FileSource) *Downloader {
	return &Downloader{source: s}
}

// DownloadSalesFiles downloads every CSV and XLSX file in the folder into
// DownloadDir and returns the local paths. Native Google Sheets are exported
// as XLSX. Other files are skipped.
func (d *Downloader) DownloadSalesFiles(ctx context.Context, opts DownloadOptions) ([]string, error) {
	if opts.DownloadDir == "" {
		return nil, fmt.Errorf("download dir is required")
	}
	if err := os.MkdirAll(opts.DownloadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	files, err := d.source.ListFiles(ctx, opts.FolderID)
	if err != nil {
		return nil, err
	}

	var localPaths []string
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := filepath.Base(f.Name)
		fetch := d.source.DownloadFile
		switch {
		case f.MimeType == spreadsheetMimeType:
			name = strings.TrimSuffix(name, filepath.Ext(name)) + ".xlsx"
			fetch = d.source.ExportSpreadsheet
		case !ingest.IsSupported(name):
			continue
		}

		localPath := filepath.Join(opts.DownloadDir, name)
		if err := downloadTo(ctx, localPath, f.ID, fetch); err != nil {
			return nil, fmt.Errorf("failed to download %s: %w", f.Name, err)
		}
		localPaths = append(localPaths, localPath)
	}

	return localPaths, nil
}

func downloadTo(ctx context.Context, path, fileID string, fetch func(context.Context, string, io.Writer) error) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", path, err)
	}
	if err := fetch(ctx, fileID, out); err != nil {
		out.Close()
		os.Remove(path)
		return err
	}
	return out.Close()
}
