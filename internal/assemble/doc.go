// Package assemble builds the final deliverable from downloaded page
// files: a single PDF document with embedded provenance metadata, or a
// directory of validated page images.
package assemble
