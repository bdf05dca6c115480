package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/use-agent/pagecap/models"
)

// writeOutputs appends the name and path outputs to the CI output file.
// An empty path is a no-op.
func writeOutputs(path string, art *models.Artifact) error {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open outputs file: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	fmt.Fprintf(&b, "name=%s\n", art.Name)
	fmt.Fprintf(&b, "path=%s\n", art.Path)
	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("write outputs file: %w", err)
	}
	return nil
}
