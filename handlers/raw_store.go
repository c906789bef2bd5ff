package handlers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Local directory for raw report storage.
var rawReportDir = "./uploads/reports"

// SaveRawReport writes the original report bytes to the append-only raw
// store and returns the stored path. Files are written once under a unique
// name and never rewritten, so the original upload is always recoverable
// for re-parsing.
func SaveRawReport(name string, data []byte) (string, error) {
	if err := os.MkdirAll(rawReportDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create raw report directory: %w", err)
	}

	// Unique filename with timestamp to avoid collisions
	timestamp := time.Now().Format("20060102-150405")
	ext := filepath.Ext(name)
	if ext == "" {
		ext = ".txt"
	}
	fileName := fmt.Sprintf("%s-%s%s", timestamp, uuid.New().String()[:8], ext)
	path := filepath.Join(rawReportDir, fileName)

	// O_EXCL: the store is append-only, an existing file is never replaced
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create raw report file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return "", fmt.Errorf("failed to write raw report: %w", err)
	}
	return path, nil
}

// LoadRawReport reads a stored raw report back for re-parsing.
func LoadRawReport(path string) ([]byte, error) {
	clean := filepath.Clean(path)
	if !strings.HasPrefix(clean, filepath.Clean(rawReportDir)+string(filepath.Separator)) {
		return nil, fmt.Errorf("path %q outside raw report store", path)
	}
	return os.ReadFile(clean)
}
