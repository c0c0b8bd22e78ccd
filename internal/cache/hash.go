package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// HashInputs creates a hash of everything that determines a build's output
// The hash is based on:
// - Source file content
// - Compile flags, in order (flag order is significant to the compiler)
// - Toolchain prefix
func HashInputs(sourceFile string, flags []string, prefix string) (string, error) {
	h := sha256.New()

	f, err := os.Open(sourceFile)
	if err != nil {
		return "", fmt.Errorf("failed to open source file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash source file: %w", err)
	}

	h.Write([]byte{0})
	h.Write([]byte(strings.Join(flags, "\x00")))
	h.Write([]byte{0})
	h.Write([]byte(prefix))

	return hex.EncodeToString(h.Sum(nil)), nil
}
