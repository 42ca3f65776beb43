package knowledge

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hyperifyio/goleakscan/internal/subject"
)

const sheetName = "Results"

// Export writes the subject's ledger in the requested format and returns the
// output path. "csv" returns the ledger itself.
func (s *Store) Export(name, format string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "csv", "excel", "xlsx", "json":
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	defer s.Locks.Lock(name)()
	recs, err := s.load(name)
	if err != nil {
		return "", err
	}
	base := filepath.Join(s.masterDir(), subject.FileKey(name)+"_master")
	switch format {
	case "csv":
		return s.LedgerPath(name), nil
	case "json":
		b, err := json.MarshalIndent(recs, "", "  ")
		if err != nil {
			return "", err
		}
		path := base + ".json"
		if err := writeFileAtomic(path, b); err != nil {
			return "", fmt.Errorf("write json export: %w", err)
		}
		return path, nil
	default:
		path := base + ".xlsx"
		if err := writeXLSX(path, recs); err != nil {
			return "", fmt.Errorf("write excel export: %w", err)
		}
		return path, nil
	}
}

func writeXLSX(path string, recs []Record) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return err
	}
	for i, r := range recs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{r.Title, r.URL, r.Snippet, r.Query, r.Page, r.Date, r.DiscoveredDate}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return f.SaveAs(path)
}

// ReadExport loads an export produced by Export, dispatching on the file
// extension.
func ReadExport(path string) ([]Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadSnapshot(path)
	case ".json":
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var recs []Record
		if err := json.Unmarshal(b, &recs); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return recs, nil
	case ".xlsx":
		return readXLSX(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

func readXLSX(path string) ([]Record, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []Record{}, nil
	}
	idx, err := headerIndex(rows[0])
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		// GetRows trims trailing empty cells.
		out = append(out, fromRow(idx, row))
	}
	return out, nil
}
