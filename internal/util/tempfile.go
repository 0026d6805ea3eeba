package util

import (
	"fmt"
	"os"
)

// WithTempFile writes material to a private temporary file, calls fn with
// its path and removes the file when fn returns, whatever the outcome.
// Key material never outlives the call.
func WithTempFile(pattern string, material []byte, fn func(path string) error) error {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if err := f.Chmod(0600); err != nil {
		f.Close()
		return fmt.Errorf("failed to restrict temp file: %w", err)
	}
	if _, err := f.Write(material); err != nil {
		f.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	return fn(path)
}
