package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/bjaergning/rapport/internal/database"
	"github.com/charmbracelet/log"
	"github.com/go-pdf/fpdf"
)

const (
	title        = "Bjærgningsrapport"
	eventHeading = "Hændelsesforløb:"

	fontFamily = "Arial"

	// DefaultImageWidth is the width photos are scaled to, in millimetres.
	DefaultImageWidth = 100.0
)

// ImageSource provides embeddable JPEG data for a stored attachment, or nil.
type ImageSource interface {
	PrepareForEmbedding(name string) []byte
}

// Generator renders reports as PDF documents.
type Generator struct {
	images     ImageSource
	compress   bool
	imageWidth float64
}

// Option configures a Generator.
type Option func(*Generator)

// WithCompression toggles stream compression.
func WithCompression(compress bool) Option {
	return func(g *Generator) {
		g.compress = compress
	}
}

// WithImageWidth sets the width photos are scaled to, in millimetres.
func WithImageWidth(mm float64) Option {
	return func(g *Generator) {
		if mm > 0 {
			g.imageWidth = mm
		}
	}
}

// New creates a generator. images may be nil, in which case no photos are embedded.
func New(images ImageSource, opts ...Option) *Generator {
	g := &Generator{
		images:     images,
		compress:   true,
		imageWidth: DefaultImageWidth,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// FormatDate renders a stored ISO timestamp as date and minute, e.g. "2024-05-01 10:30".
func FormatDate(timestamp string) string {
	if len(timestamp) > 16 {
		timestamp = timestamp[:16]
	}
	return strings.ReplaceAll(timestamp, "T", " ")
}

// Render lays out the report header followed by the entries in order.
// Photos that cannot be loaded are skipped.
func (g *Generator) Render(report database.Report, entries []database.Entry) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(g.compress)
	pdf.SetTitle(title, true)

	// core fonts are cp1252 encoded
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont(fontFamily, "", 12)
	pdf.CellFormat(0, 10, tr(title), "", 1, "C", false, 0, "")
	pdf.Ln(10)

	pdf.CellFormat(0, 10, tr("Sted: "+report.Location), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 10, tr("Opgave: "+report.Subject), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 10, tr("Dato: "+FormatDate(report.Timestamp)), "", 1, "", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont(fontFamily, "B", 12)
	pdf.CellFormat(0, 10, tr(eventHeading), "", 1, "", false, 0, "")

	pdf.SetFont(fontFamily, "", 11)
	for i, entry := range entries {
		pdf.MultiCell(0, 8, tr(fmt.Sprintf("%s - %s", entry.Time, entry.Description)), "", "L", false)
		pdf.Ln(1)

		if entry.Image != "" {
			g.embedImage(pdf, fmt.Sprintf("entry-%d", i), entry.Image)
		}
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to render document: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write document: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *Generator) embedImage(pdf *fpdf.Fpdf, key, name string) {
	if g.images == nil {
		return
	}

	data := g.images.PrepareForEmbedding(name)
	if data == nil {
		return
	}

	opts := fpdf.ImageOptions{ImageType: "JPG"}
	pdf.RegisterImageOptionsReader(key, opts, bytes.NewReader(data))
	if !pdf.Ok() {
		log.Error("failed to embed attachment", "name", name, "error", pdf.Error())
		pdf.ClearError()
		return
	}

	// flow mode moves below the image and breaks the page when needed
	pdf.ImageOptions(key, -1, 0, g.imageWidth, 0, true, opts, 0, "")
	if !pdf.Ok() {
		log.Error("failed to place attachment", "name", name, "error", pdf.Error())
		pdf.ClearError()
		return
	}
	pdf.Ln(2)
}
