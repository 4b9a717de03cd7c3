package pdf

import (
	"bytes"
	"errors"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"
)

// US Letter in points with one-inch margins.
const (
	pageWidth    = 612.0
	pageHeight   = 792.0
	margin       = 72.0
	contentWidth = pageWidth - 2*margin
	bottomLimit  = pageHeight - margin

	fontFamily = "Times"
	fontSize   = 12.0
	lineHeight = 15.0

	dateLayout = "January 2, 2006"
	creator    = "Talk To My Lawyer"
)

var errMissingDate = errors.New("letter date is required for a reproducible document")

// Document is the content placed on the page, in render order.
type Document struct {
	Date             time.Time
	RecipientName    string
	RecipientAddress string
	Title            string
	Body             string
	Author           string
}

// Render lays out doc and returns the PDF bytes. Identical input yields identical bytes:
// the only timestamp written is doc.Date and the object catalog is sorted.
func Render(doc Document) ([]byte, error) {
	pdf, err := layout(doc)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func layout(doc Document) (*gofpdf.Fpdf, error) {
	if doc.Date.IsZero() {
		return nil, errMissingDate
	}
	date := doc.Date.UTC()

	pdf := gofpdf.New("P", "pt", "Letter", "")
	pdf.SetCreationDate(date)
	pdf.SetModificationDate(date)
	pdf.SetCatalogSort(true)
	pdf.SetCreator(creator, true)
	pdf.SetTitle(doc.Title, true)
	if doc.Author != "" {
		pdf.SetAuthor(doc.Author, true)
	}
	pdf.SetMargins(margin, margin, margin)
	// Page breaks are driven by the line cursor below.
	pdf.SetAutoPageBreak(false, margin)
	pdf.AddPage()

	w := &cursor{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), y: margin}

	w.paragraph(date.Format(dateLayout), "")
	w.gap()

	if name := strings.TrimSpace(doc.RecipientName); name != "" {
		w.paragraph(name, "")
	}
	for _, line := range splitLines(doc.RecipientAddress) {
		if line != "" {
			w.paragraph(line, "")
		}
	}
	w.gap()

	w.paragraph(salutation(doc.RecipientName), "")
	w.gap()

	w.paragraph("Re: "+strings.TrimSpace(doc.Title), "B")
	w.gap()

	blank := false
	for _, line := range splitLines(doc.Body) {
		if line == "" {
			if !blank {
				w.gap()
			}
			blank = true
			continue
		}
		blank = false
		w.paragraph(line, "")
	}

	if err := pdf.Error(); err != nil {
		return nil, err
	}
	return pdf, nil
}

func salutation(recipient string) string {
	if name := strings.TrimSpace(recipient); name != "" {
		return "Dear " + name + ","
	}
	return "To Whom It May Concern,"
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return lines
}

// cursor tracks the vertical write position and starts a new page
// whenever the next line would cross the bottom margin.
type cursor struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
	y   float64
}

func (c *cursor) paragraph(text, style string) {
	c.pdf.SetFont(fontFamily, style, fontSize)
	for _, line := range c.pdf.SplitLines([]byte(c.tr(text)), contentWidth) {
		c.line(string(line))
	}
}

func (c *cursor) line(text string) {
	if c.y+lineHeight > bottomLimit {
		c.pdf.AddPage()
		c.y = margin
	}
	c.pdf.SetXY(margin, c.y)
	c.pdf.CellFormat(contentWidth, lineHeight, text, "", 0, "L", false, 0, "")
	c.y += lineHeight
}

func (c *cursor) gap() {
	c.y += lineHeight
}
