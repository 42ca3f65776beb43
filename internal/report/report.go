// Package report renders a subject's ledger as a printable document.
package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperifyio/goleakscan/internal/aggregate"
	"github.com/hyperifyio/goleakscan/internal/knowledge"
	"github.com/hyperifyio/goleakscan/internal/subject"
)

// ErrUnsupportedFormat is returned for formats other than pdf and docx.
var ErrUnsupportedFormat = errors.New("unsupported report format")

// maxListed bounds the result rows rendered; the ledger itself stays the
// complete record.
const maxListed = 200

// Report is everything a document shows.
type Report struct {
	Subject   string
	Generated time.Time
	Stats     knowledge.Stats
	Records   []knowledge.Record
	Keywords  []string
}

// Path returns the output path of a subject's report under dataDir.
func Path(dataDir, name, format string) string {
	return filepath.Join(dataDir, "reports", subject.FileKey(name)+"_report."+strings.ToLower(format))
}

// Write renders r to path in the given format.
func Write(path, format string, r Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	switch strings.ToLower(format) {
	case "pdf":
		return writePDF(path, r)
	case "docx":
		return writeDOCX(path, r)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func (r Report) title() string {
	return "Content scan report: " + r.Subject
}

func (r Report) summaryLines() []string {
	lines := []string{
		fmt.Sprintf("Generated: %s", r.Generated.Format("2006-01-02 15:04")),
		fmt.Sprintf("Total URLs: %d", r.Stats.TotalURLs),
	}
	if r.Stats.Oldest != nil && r.Stats.Newest != nil {
		lines = append(lines, fmt.Sprintf("Discovered between %s and %s", *r.Stats.Oldest, *r.Stats.Newest))
	}
	return lines
}

func (r Report) domainLines() []string {
	buckets := aggregate.Sorted(r.Stats.Domains)
	out := make([]string, 0, len(buckets))
	for i, b := range buckets {
		if i == 20 {
			break
		}
		out = append(out, fmt.Sprintf("%s: %d", b.Domain, b.Count))
	}
	return out
}

func (r Report) listed() []knowledge.Record {
	if len(r.Records) > maxListed {
		return r.Records[:maxListed]
	}
	return r.Records
}
