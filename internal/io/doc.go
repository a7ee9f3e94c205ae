// Package ioutils provides file system and image helpers shared by
// the download pipeline.
//
// This package contains:
//   - Collision-free path numbering (UniquePath)
//   - Directory creation (EnsureDir)
//   - Image validation and JPEG recoding (ImageService)
//
// UniquePath implements the "name(1)", "name(2)" collision policy used
// for both the final artifact file and the per-run workspace
// directory.
package ioutils
