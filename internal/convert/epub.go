package convert

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jung-kurt/gofpdf"

	ioutils "bookfetch/internal/io"
	"bookfetch/internal/model"
)

// ErrConversion marks a failed EPUB to PDF conversion.
var ErrConversion = errors.New("conversion failed")

// container is the fixed-location entry point of an EPUB archive,
// pointing at the package document.
type container struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

// packageDoc is the OPF package document: book metadata, the file
// manifest and the spine giving reading order.
type packageDoc struct {
	Metadata struct {
		Title   string `xml:"title"`
		Creator string `xml:"creator"`
	} `xml:"metadata"`
	Manifest struct {
		Items []struct {
			ID        string `xml:"id,attr"`
			Href      string `xml:"href,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		ItemRefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

// EPUBConverter renders the text content of an EPUB as a plain PDF,
// chapter per spine entry. Formatting beyond headings is not
// preserved; this exists for readers that only accept PDF.
type EPUBConverter struct {
	logf func(format string, args ...any)
}

// NewEPUBConverter creates an EPUBConverter reporting progress through
// logf (nil discards it).
func NewEPUBConverter(logf func(format string, args ...any)) *EPUBConverter {
	return &EPUBConverter{logf: logf}
}

// Convert renders epubPath as a PDF in outputDir and returns the
// output path.
func (c *EPUBConverter) Convert(epubPath, outputDir string) (string, error) {
	zr, err := zip.OpenReader(epubPath)
	if err != nil {
		return "", fmt.Errorf("%w: opening %s: %v", ErrConversion, epubPath, err)
	}
	defer zr.Close()

	entries := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		entries[f.Name] = f
	}

	opfPath, err := findPackagePath(entries)
	if err != nil {
		return "", err
	}

	var pkg packageDoc
	if err := readXML(entries, opfPath, &pkg); err != nil {
		return "", err
	}

	chapters, err := c.extractChapters(entries, opfPath, &pkg)
	if err != nil {
		return "", err
	}
	if len(chapters) == 0 {
		return "", fmt.Errorf("%w: no readable chapters in %s", ErrConversion, epubPath)
	}

	title := strings.TrimSpace(pkg.Metadata.Title)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(epubPath), filepath.Ext(epubPath))
	}

	out := ioutils.UniquePath(filepath.Join(outputDir, model.SanitizeTitle(title)+".pdf"))
	if err := c.writePDF(out, title, pkg.Metadata.Creator, chapters); err != nil {
		return "", err
	}

	c.printf("converted %s to %s (%d chapters)", epubPath, out, len(chapters))
	return out, nil
}

func findPackagePath(entries map[string]*zip.File) (string, error) {
	var cont container
	if err := readXML(entries, "META-INF/container.xml", &cont); err != nil {
		return "", err
	}
	if len(cont.Rootfiles) == 0 || cont.Rootfiles[0].FullPath == "" {
		return "", fmt.Errorf("%w: container names no package document", ErrConversion)
	}
	return cont.Rootfiles[0].FullPath, nil
}

func readXML(entries map[string]*zip.File, name string, v any) error {
	f, ok := entries[name]
	if !ok {
		return fmt.Errorf("%w: missing %s", ErrConversion, name)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", ErrConversion, name, err)
	}
	defer rc.Close()

	if err := xml.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrConversion, name, err)
	}
	return nil
}

type chapter struct {
	heading string
	body    string
}

// extractChapters walks the spine in reading order and pulls plain
// text out of each XHTML document. Non-text spine entries are skipped;
// a chapter that fails to parse is dropped with a warning.
func (c *EPUBConverter) extractChapters(entries map[string]*zip.File, opfPath string, pkg *packageDoc) ([]chapter, error) {
	hrefs := make(map[string]string, len(pkg.Manifest.Items))
	types := make(map[string]string, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		hrefs[item.ID] = item.Href
		types[item.ID] = item.MediaType
	}

	baseDir := path.Dir(opfPath)

	var chapters []chapter
	for _, ref := range pkg.Spine.ItemRefs {
		mediaType := types[ref.IDRef]
		if !strings.Contains(mediaType, "xhtml") && !strings.Contains(mediaType, "html") {
			continue
		}

		name := hrefs[ref.IDRef]
		if baseDir != "." {
			name = path.Join(baseDir, name)
		}

		f, ok := entries[name]
		if !ok {
			c.printf("spine entry %s missing from archive, skipping", name)
			continue
		}

		rc, err := f.Open()
		if err != nil {
			c.printf("opening chapter %s: %v, skipping", name, err)
			continue
		}
		doc, err := goquery.NewDocumentFromReader(rc)
		rc.Close()
		if err != nil {
			c.printf("parsing chapter %s: %v, skipping", name, err)
			continue
		}

		chapters = append(chapters, chapter{
			heading: strings.TrimSpace(doc.Find("h1, h2, h3").First().Text()),
			body:    chapterText(doc),
		})
	}

	return chapters, nil
}

// chapterText flattens a chapter document to paragraphs separated by
// blank lines, falling back to the whole body text when no block
// elements are present.
func chapterText(doc *goquery.Document) string {
	var parts []string
	doc.Find("p, h1, h2, h3, h4, h5, h6, li, blockquote").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	if len(parts) == 0 {
		return strings.TrimSpace(doc.Find("body").Text())
	}
	return strings.Join(parts, "\n\n")
}

func (c *EPUBConverter) writePDF(out, title, creator string, chapters []chapter) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	if creator != "" {
		pdf.SetAuthor(creator, true)
	}
	pdf.SetMargins(20, 20, 20)

	// The core fonts only cover cp1252; translate what they can show.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, ch := range chapters {
		pdf.AddPage()
		if ch.heading != "" {
			pdf.SetFont("Helvetica", "B", 16)
			pdf.MultiCell(0, 8, tr(ch.heading), "", "L", false)
			pdf.Ln(4)
		}
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 5, tr(ch.body), "", "L", false)
	}

	if err := pdf.OutputFileAndClose(out); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrConversion, out, err)
	}
	return nil
}

func (c *EPUBConverter) printf(format string, args ...any) {
	if c.logf != nil {
		c.logf(format, args...)
	}
}
