package report

import (
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

func writePDF(path string, r Report) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	// Core fonts are cp1252; translate so non-ASCII titles do not garble.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()

	heading := func(text string, size float64) {
		pdf.SetFont("Helvetica", "B", size)
		pdf.CellFormat(0, 8, tr(text), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
	}

	heading(r.title(), 16)
	for _, l := range r.summaryLines() {
		pdf.CellFormat(0, 6, tr(l), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	if lines := r.domainLines(); len(lines) > 0 {
		heading("Top domains", 13)
		for _, l := range lines {
			pdf.CellFormat(0, 5, tr(l), "", 1, "L", false, 0, "")
		}
		pdf.Ln(4)
	}
	if len(r.Keywords) > 0 {
		heading("Learned keywords", 13)
		for i, k := range r.Keywords {
			pdf.CellFormat(0, 5, tr(fmt.Sprintf("%d. %s", i+1, k)), "", 1, "L", false, 0, "")
		}
		pdf.Ln(4)
	}

	heading("Results", 13)
	for _, rec := range r.listed() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.MultiCell(0, 5, tr(rec.Title), "", "L", false)
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(0, 0, 255)
		pdf.WriteLinkString(5, rec.URL, rec.URL)
		pdf.Ln(5)
		pdf.SetTextColor(0, 0, 0)
		if rec.Snippet != "" {
			pdf.MultiCell(0, 4, tr(rec.Snippet), "", "L", false)
		}
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 4, tr(fmt.Sprintf("Query: %s | Page %d | Discovered %s", rec.Query, rec.Page, rec.DiscoveredDate)), "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(2)
	}
	return pdf.OutputFileAndClose(path)
}
