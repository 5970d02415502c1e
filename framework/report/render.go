package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
)

// Meta is the header block of a rendered report
type Meta struct {
	Project   string
	TestType  string
	Version   string
	TimeRange string
}

// PDFInput is everything WritePDF needs
type PDFInput struct {
	Title    string
	Meta     Meta
	Sections Sections

	// FullText is rendered when the full report section is empty
	FullText string

	// FontPath optionally points at a UTF-8 TrueType font. Without it the
	// core Helvetica font is used and non-Latin text is transliterated.
	FontPath string
}

// WriteText writes the report text, creating parent directories
func WriteText(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write text report: %w", err)
	}
	return nil
}

// WritePDF renders the report to a PDF file, creating parent directories
func WritePDF(path string, in PDFInput) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create pdf report: %w", err)
	}
	if err := RenderPDF(f, in); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// RenderPDF renders the report as PDF into w
func RenderPDF(w io.Writer, in PDFInput) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)

	family := "Helvetica"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if in.FontPath != "" {
		family = "report"
		pdf.AddUTF8Font(family, "", in.FontPath)
		pdf.AddUTF8Font(family, "B", in.FontPath)
		tr = func(s string) string { return s }
	}

	pdf.AddPage()
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	width := pageW - left - right

	heading := func(text string) {
		pdf.Ln(3)
		pdf.SetFont(family, "B", 13)
		pdf.MultiCell(width, 7, tr(text), "", "L", false)
		pdf.Ln(1)
	}
	paragraph := func(text string) {
		pdf.SetFont(family, "", 10)
		if strings.TrimSpace(text) == "" {
			text = Placeholder
		}
		pdf.MultiCell(width, 5, tr(text), "", "L", false)
	}

	title := in.Title
	if title == "" {
		title = "Load test report"
	}
	pdf.SetFont(family, "B", 16)
	pdf.MultiCell(width, 9, tr(title), "", "L", false)
	pdf.Ln(3)

	pdf.SetFont(family, "", 10)
	for _, line := range []struct{ label, value string }{
		{"Project", in.Meta.Project},
		{"Test type", in.Meta.TestType},
		{"Software version", in.Meta.Version},
		{"Test time", in.Meta.TimeRange},
	} {
		pdf.MultiCell(width, 5, tr(line.label+": "+orPlaceholder(line.value)), "", "L", false)
	}

	s := in.Sections
	if s == nil {
		s = NewSections()
	}

	heading(KeySources.Title())
	paragraph(s[KeySources])

	heading(KeyPodsTable.Title())
	rows := ParsePodsTable(s[KeyPodsTable])
	if len(rows) == 0 {
		paragraph("")
	} else {
		podsTable(pdf, family, tr, width, rows)
	}

	heading(KeyGood.Title())
	paragraph(s[KeyGood])
	heading(KeyBad.Title())
	paragraph(s[KeyBad])
	heading(KeyErrors.Title())
	paragraph(s[KeyErrors])

	heading(KeyFullReport.Title())
	full := s[KeyFullReport]
	if full == "" {
		full = in.FullText
	}
	for _, para := range splitParagraphs(full) {
		paragraph(para)
		pdf.Ln(2)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render pdf report: %w", err)
	}
	return nil
}

// podsTable draws the header row and rows with widths 40/15/22.5/22.5 percent
func podsTable(pdf *fpdf.Fpdf, family string, tr func(string) string, width float64, rows [][]string) {
	widths := []float64{width * 0.40, width * 0.15, width * 0.225, width * 0.225}

	pdf.SetFont(family, "B", 8)
	pdf.SetFillColor(128, 128, 128)
	pdf.SetTextColor(245, 245, 245)
	for i, cell := range PodsHeader {
		pdf.CellFormat(widths[i], 6, tr(cell), "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(family, "", 8)
	pdf.SetTextColor(0, 0, 0)
	for _, row := range rows {
		for i, cell := range row {
			pdf.CellFormat(widths[i], 6, tr(fit(pdf, cell, widths[i]-2)), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
}

// fit shortens s until it fits in w millimetres
func fit(pdf *fpdf.Fpdf, s string, w float64) string {
	if pdf.GetStringWidth(s) <= w {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > w {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

func splitParagraphs(text string) []string {
	var paras []string
	for _, p := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paras = append(paras, p)
		}
	}
	if len(paras) == 0 {
		paras = []string{Placeholder}
	}
	return paras
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return Placeholder
	}
	return s
}
