package utils

import (
	"os"
	"path/filepath"
)

// EnsureArchiveDir creates the local receipt archive directory if it doesn't exist
func EnsureArchiveDir() error {
	return os.MkdirAll("archive", os.ModePerm)
}

// SaveReceiptLocal writes a receipt into the local archive directory and
// returns the path it is served under
func SaveReceiptLocal(key string, payload []byte) (string, error) {
	destPath := filepath.Join("archive", key)
	if err := os.MkdirAll(filepath.Dir(destPath), os.ModePerm); err != nil {
		return "", err
	}
	if err := os.WriteFile(destPath, payload, 0o644); err != nil {
		return "", err
	}
	return "/" + filepath.ToSlash(destPath), nil
}
