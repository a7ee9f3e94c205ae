package assemble

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	ioutils "bookfetch/internal/io"
	"bookfetch/internal/model"
)

// ErrAssembly marks a failed artifact build: either no valid page
// images survived validation, or the document writer failed.
var ErrAssembly = errors.New("artifact assembly failed")

// Assembler turns ordered page files into the final artifact.
//
// Every candidate file must decode as a well-formed image; corrupt
// entries are dropped with a warning rather than aborting, as long as
// at least one valid image remains. For the single-document format the
// valid images are combined into one PDF with provenance metadata
// embedded; for the image-set format the workspace directory itself
// (minus dropped files) is the artifact.
type Assembler struct {
	images *ioutils.ImageService
	logf   func(format string, args ...any)
}

// NewAssembler creates an Assembler reporting warnings through logf
// (nil discards them).
func NewAssembler(logf func(format string, args ...any)) *Assembler {
	return &Assembler{images: ioutils.NewImageService(), logf: logf}
}

type validPage struct {
	path   string
	format string
}

// Assemble validates the ordered page files and produces the artifact,
// returning its path.
func (a *Assembler) Assemble(book *model.Book, files []string, cfg model.DownloadConfig) (string, error) {
	valid := make([]validPage, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			a.warn("dropping unreadable page file %s: %v", path, err)
			a.discard(path, cfg)
			continue
		}

		format, err := a.images.Validate(data)
		if err != nil {
			a.warn("dropping corrupt page image %s: %v", path, err)
			a.discard(path, cfg)
			continue
		}

		valid = append(valid, validPage{path: path, format: format})
	}

	if len(valid) == 0 {
		return "", fmt.Errorf("%w: no valid page images", ErrAssembly)
	}

	if cfg.Format == model.FormatImages {
		return filepath.Dir(valid[0].path), nil
	}

	return a.buildPDF(book, valid, cfg)
}

// discard removes a corrupt file when the directory itself will become
// the artifact. On the PDF path the whole workspace is removed later
// anyway.
func (a *Assembler) discard(path string, cfg model.DownloadConfig) {
	if cfg.Format != model.FormatImages {
		return
	}
	if err := os.Remove(path); err != nil {
		a.warn("failed to remove %s: %v", path, err)
	}
}

// buildPDF combines the valid images, in order, into one PDF document
// with embedded provenance metadata.
func (a *Assembler) buildPDF(book *model.Book, pages []validPage, cfg model.DownloadConfig) (string, error) {
	out := ioutils.UniquePath(filepath.Join(cfg.OutputDir, book.SafeTitle()+".pdf"))

	pdf := gofpdf.New("P", "mm", "A4", "")
	a.applyMetadata(pdf, book)

	for i, page := range pages {
		data, err := os.ReadFile(page.path)
		if err != nil {
			return "", fmt.Errorf("%w: reading %s: %v", ErrAssembly, page.path, err)
		}

		imageType := ""
		switch page.format {
		case "jpeg":
			imageType = "JPG"
		case "png":
			imageType = "PNG"
		default:
			// Formats the PDF writer cannot embed are recoded.
			data, err = a.images.ConvertToJPEG(data)
			if err != nil {
				return "", fmt.Errorf("%w: recoding %s: %v", ErrAssembly, page.path, err)
			}
			imageType = "JPG"
		}

		opts := gofpdf.ImageOptions{ImageType: imageType}
		name := fmt.Sprintf("page-%d", i)
		info := pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
		if pdf.Err() {
			return "", fmt.Errorf("%w: embedding %s: %v", ErrAssembly, page.path, pdf.Error())
		}

		w, h := info.Extent()
		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: w, Ht: h})
		pdf.ImageOptions(name, 0, 0, w, h, false, opts, 0, "")
	}

	if err := pdf.OutputFileAndClose(out); err != nil {
		return "", fmt.Errorf("%w: writing %s: %v", ErrAssembly, out, err)
	}

	return out, nil
}

// applyMetadata embeds title, author, creation year and a keyword
// linking back to the source locator. The year is parsed best-effort
// from a 4-digit prefix of the date field; unparsable dates are
// silently omitted, never fatal.
func (a *Assembler) applyMetadata(pdf *gofpdf.Fpdf, book *model.Book) {
	title := model.MetaString(book.Metadata, "title")
	if title == "" {
		title = book.Title
	}
	pdf.SetTitle(title, true)

	creator := model.MetaString(book.Metadata, "creator")
	names := model.MetaString(book.Metadata, "associated-names")
	switch {
	case creator != "" && names != "":
		pdf.SetAuthor(creator+"; "+names, true)
	case creator != "":
		pdf.SetAuthor(creator, true)
	case names != "":
		pdf.SetAuthor(names, true)
	}

	if date := model.MetaString(book.Metadata, "date"); len(date) >= 4 {
		if year, err := strconv.Atoi(date[:4]); err == nil {
			pdf.SetCreationDate(time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC))
		}
	}

	link := book.Locator
	if !strings.HasPrefix(link, "http://") && !strings.HasPrefix(link, "https://") {
		link = "https://archive.org/details/" + book.ID
	}
	pdf.SetKeywords(link, true)
}

func (a *Assembler) warn(format string, args ...any) {
	if a.logf != nil {
		a.logf(format, args...)
	}
}
