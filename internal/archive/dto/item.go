package dto

import (
	"path"
	"strconv"
	"strings"
)

// ItemMetadata is the catalog record for an item, returned by the
// metadata endpoint. It is the fallback source when no page manifest
// exists: the file listing may contain a pre-assembled readable
// document.
type ItemMetadata struct {
	Metadata map[string]any `json:"metadata"`
	Files    []ItemFile     `json:"files"`
}

// ItemFile is one entry in an item's file listing. Size arrives as a
// decimal string.
type ItemFile struct {
	Name   string `json:"name"`
	Format string `json:"format"`
	Size   string `json:"size"`
}

// SizeBytes parses the file size, returning 0 when absent or mangled.
func (f ItemFile) SizeBytes() int64 {
	n, err := strconv.ParseInt(f.Size, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Readable reports whether the file looks like a whole readable
// document suitable for the direct-artifact shortcut.
func (f ItemFile) Readable() bool {
	switch strings.ToLower(path.Ext(f.Name)) {
	case ".pdf", ".epub":
		return true
	default:
		return false
	}
}

// LargestReadable selects the biggest readable document from a file
// listing, or false when none qualifies.
func (im *ItemMetadata) LargestReadable() (ItemFile, bool) {
	var best ItemFile
	found := false
	for _, f := range im.Files {
		if !f.Readable() {
			continue
		}
		if !found || f.SizeBytes() > best.SizeBytes() {
			best = f
			found = true
		}
	}
	return best, found
}
