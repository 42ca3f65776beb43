package knowledge

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DateLayout is the calendar-day format used for all persisted dates.
const DateLayout = "2006-01-02"

// Record is one ledger row. URL is its identity within a subject.
type Record struct {
	Title          string `json:"title"`
	URL            string `json:"url"`
	Snippet        string `json:"snippet"`
	Query          string `json:"query"`
	Page           int    `json:"page"`
	Date           string `json:"date"`
	DiscoveredDate string `json:"discovered_date"`
}

// Columns is the ledger schema, in file order.
var Columns = []string{"title", "url", "snippet", "query", "page", "date", "discovered_date"}

func (r Record) row() []string {
	return []string{r.Title, r.URL, r.Snippet, r.Query, strconv.Itoa(r.Page), r.Date, r.DiscoveredDate}
}

// fromRow maps a row onto a Record using the header positions in idx.
func fromRow(idx map[string]int, row []string) Record {
	get := func(col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}
	return Record{
		Title:          get("title"),
		URL:            get("url"),
		Snippet:        get("snippet"),
		Query:          get("query"),
		Page:           parsePage(get("page")),
		Date:           get("date"),
		DiscoveredDate: get("discovered_date"),
	}
}

func parsePage(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

func headerIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	if _, ok := idx["url"]; !ok {
		return nil, fmt.Errorf("ledger header has no url column: %v", header)
	}
	return idx, nil
}

func writeCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(r.row()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func readCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx, err := headerIndex(header)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, 64)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		out = append(out, fromRow(idx, row))
	}
	return out, nil
}
