package report

import (
	"fmt"

	"github.com/gingfrederik/docx"
)

func writeDOCX(path string, r Report) error {
	f := docx.NewFile()
	line := func(text string, size int, color string) {
		run := f.AddParagraph().AddText(text)
		if size > 0 {
			run.Size(size)
		}
		if color != "" {
			run.Color(color)
		}
	}

	line(r.title(), 20, "")
	for _, l := range r.summaryLines() {
		line(l, 11, "")
	}
	f.AddParagraph()

	if lines := r.domainLines(); len(lines) > 0 {
		line("Top domains", 16, "")
		for _, l := range lines {
			line(l, 0, "")
		}
		f.AddParagraph()
	}
	if len(r.Keywords) > 0 {
		line("Learned keywords", 16, "")
		for i, k := range r.Keywords {
			line(fmt.Sprintf("%d. %s", i+1, k), 0, "")
		}
		f.AddParagraph()
	}

	line("Results", 16, "")
	for _, rec := range r.listed() {
		line(rec.Title, 12, "")
		line(rec.URL, 10, "0000FF")
		if rec.Snippet != "" {
			line(rec.Snippet, 0, "")
		}
		line(fmt.Sprintf("Query: %s | Page %d | Discovered %s", rec.Query, rec.Page, rec.DiscoveredDate), 9, "808080")
	}
	return f.Save(path)
}
