package cache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
)

// OutputExtensions are the file kinds a build directory accumulates
var OutputExtensions = []string{".o", ".elf", ".map"}

// CopyArtifacts copies build outputs from sourceDir into destDir
func CopyArtifacts(sourceDir, destDir string, outputs []string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	for _, output := range outputs {
		src := filepath.Join(sourceDir, output)
		dst := filepath.Join(destDir, output)

		if err := copyFile(src, dst); err != nil {
			return fmt.Errorf("failed to copy %s: %w", output, err)
		}
	}

	return nil
}

// CollectOutputs scans a directory and returns the sorted names of build
// output files with one of the given extensions (OutputExtensions if none)
func CollectOutputs(dir string, exts ...string) ([]string, error) {
	if len(exts) == 0 {
		exts = OutputExtensions
	}

	var outputs []string

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No outputs yet
		}
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if slices.Contains(exts, filepath.Ext(name)) {
			outputs = append(outputs, name)
		}
	}

	sort.Strings(outputs)

	return outputs, nil
}

// RemoveOutputs deletes every build output in dir and returns how many
// files were removed. Subdirectories are never touched.
func RemoveOutputs(dir string) (int, error) {
	outputs, err := CollectOutputs(dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, name := range outputs {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", name, err)
		}

		removed++
	}

	return removed, nil
}

// copyFile copies a file from src to dst
func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}

	defer srcFile.Close()

	// Create parent directory if needed
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}

	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return err
	}

	// Preserve file permissions
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}

	return os.Chmod(dst, srcInfo.Mode())
}
