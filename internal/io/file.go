package ioutils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureDir creates a directory and all parent directories if they
// don't exist. Directories are created with mode 0755.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// UniquePath returns a path that does not yet exist, derived from the
// given candidate by appending "(1)", "(2)", … before the extension.
//
// Works for both files and directories (a directory simply has no
// extension). The probe-and-number walk is race-free within a single
// process invocation, which is all the pipeline requires.
//
// Example:
//
//	UniquePath("/out/book.pdf") // "/out/book.pdf", or "/out/book(1).pdf" if taken
//	UniquePath("/out/book")     // "/out/book", or "/out/book(1)" if taken
func UniquePath(path string) string {
	if !exists(path) {
		return path
	}

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)

	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s(%d)%s", stem, n, ext)
		if !exists(candidate) {
			return candidate
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
