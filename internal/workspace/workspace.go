// Package workspace manages the per-run temporary directory that
// holds in-progress page files.
//
// A workspace is allocated under the output directory with the same
// "(n)" collision numbering the final artifact uses, is owned
// exclusively by the pipeline invocation that created it, and is
// removed on every exit path, except when the image-set format
// succeeds, in which case the workspace itself is the artifact.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	ioutils "bookfetch/internal/io"
)

// Workspace is a uniquely named directory scoped to one acquisition
// attempt.
type Workspace struct {
	// Dir is the absolute or caller-relative directory path.
	Dir string
}

// Allocate creates a collision-free working directory named after
// baseName inside outputDir.
func Allocate(baseName, outputDir string) (*Workspace, error) {
	if err := ioutils.EnsureDir(outputDir); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	dir := ioutils.UniquePath(filepath.Join(outputDir, baseName))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}

	return &Workspace{Dir: dir}, nil
}

// Release removes the workspace and everything in it. Failures are
// reported through logf and never propagated: cleanup must not mask
// the pipeline's primary outcome.
func (w *Workspace) Release(logf func(format string, args ...any)) {
	if w == nil || w.Dir == "" {
		return
	}
	if err := os.RemoveAll(w.Dir); err != nil && logf != nil {
		logf("failed to clean up workspace %s: %v", w.Dir, err)
	}
}
