// Package knowledge is the durable per-subject ledger of discovered results.
package knowledge

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goleakscan/internal/aggregate"
	"github.com/hyperifyio/goleakscan/internal/subject"
)

var (
	// ErrNotFound is returned when a subject has no ledger yet.
	ErrNotFound = errors.New("no ledger for subject")
	// ErrUnsupportedFormat is returned for unknown export formats.
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

// Store keeps ledgers as CSV files under Dir. Merge is a read-modify-write of
// the whole file; all ledger access for a subject is serialized through Locks.
type Store struct {
	Dir   string
	Locks *subject.Locks
	Now   func() time.Time
}

// New returns a store rooted at dir. A nil locks table gets a private one;
// share the table with other writers of the same subjects.
func New(dir string, locks *subject.Locks) *Store {
	if locks == nil {
		locks = &subject.Locks{}
	}
	return &Store{Dir: dir, Locks: locks}
}

func (s *Store) masterDir() string   { return filepath.Join(s.Dir, "master_data") }
func (s *Store) snapshotDir() string { return filepath.Join(s.Dir, "temp_results") }

// LedgerPath returns the CSV path of a subject's ledger.
func (s *Store) LedgerPath(name string) string {
	return filepath.Join(s.masterDir(), subject.FileKey(name)+"_master.csv")
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Load returns the subject's ledger, or ErrNotFound.
func (s *Store) Load(name string) ([]Record, error) {
	defer s.Locks.Lock(name)()
	return s.load(name)
}

func (s *Store) load(name string) ([]Record, error) {
	f, err := os.Open(s.LedgerPath(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()
	recs, err := readCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read ledger %s: %w", f.Name(), err)
	}
	return recs, nil
}

// URLs returns every URL stored for the subject; empty when no ledger exists.
func (s *Store) URLs(name string) ([]string, error) {
	recs, err := s.Load(name)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.URL)
	}
	return out, nil
}

// Merge appends the records whose URL is not yet in the ledger, stamping them
// with today's discovered_date, and returns how many rows were added.
// Duplicates inside records are dropped too; the first occurrence wins.
func (s *Store) Merge(name string, records []Record) (int, error) {
	defer s.Locks.Lock(name)()

	existing, err := s.load(name)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return 0, err
	}
	known := make(map[string]struct{}, len(existing)+len(records))
	for _, r := range existing {
		known[r.URL] = struct{}{}
	}
	today := s.now().Format(DateLayout)
	added := 0
	combined := existing
	for _, r := range records {
		if r.URL == "" {
			continue
		}
		if _, ok := known[r.URL]; ok {
			continue
		}
		known[r.URL] = struct{}{}
		r.DiscoveredDate = today
		combined = append(combined, r)
		added++
	}
	if added == 0 {
		log.Debug().Str("stage", "merge").Str("subject", name).Msg("no new content for ledger")
		return 0, nil
	}
	var buf bytes.Buffer
	if err := writeCSV(&buf, combined); err != nil {
		return 0, fmt.Errorf("encode ledger: %w", err)
	}
	if err := writeFileAtomic(s.LedgerPath(name), buf.Bytes()); err != nil {
		return 0, fmt.Errorf("write ledger: %w", err)
	}
	log.Info().Str("stage", "merge").Str("subject", name).Int("added", added).Int("total", len(combined)).Msg("ledger updated")
	return added, nil
}

// Stats summarizes a subject's ledger.
type Stats struct {
	TotalURLs int            `json:"total_urls"`
	Domains   map[string]int `json:"domains"`
	Oldest    *string        `json:"oldest_content"`
	Newest    *string        `json:"newest_content"`
}

// TopDomains returns the histogram ordered by count.
func (st Stats) TopDomains() []aggregate.Bucket {
	return aggregate.Sorted(st.Domains)
}

// Stats returns the ledger summary. A subject without a ledger yields zero
// rows, an empty histogram and null dates.
func (s *Store) Stats(name string) (Stats, error) {
	recs, err := s.Load(name)
	if errors.Is(err, ErrNotFound) {
		return Stats{Domains: map[string]int{}}, nil
	}
	if err != nil {
		return Stats{}, err
	}
	urls := make([]string, 0, len(recs))
	var oldest, newest string
	for _, r := range recs {
		urls = append(urls, r.URL)
		d := r.DiscoveredDate
		if d == "" {
			continue
		}
		if oldest == "" || d < oldest {
			oldest = d
		}
		if newest == "" || d > newest {
			newest = d
		}
	}
	st := Stats{TotalURLs: len(recs), Domains: aggregate.Histogram(urls)}
	if oldest != "" {
		st.Oldest = &oldest
		st.Newest = &newest
	}
	return st, nil
}

// SaveSnapshot writes the records of one session to a transient CSV used as
// learning input and returns its path. tag, when set, disambiguates sessions
// that finish within the same second.
func (s *Store) SaveSnapshot(name, tag string, records []Record) (string, error) {
	if len(records) == 0 {
		return "", nil
	}
	base := subject.FileKey(name) + "_temp_" + s.now().Format("20060102_150405")
	if tag != "" {
		base += "_" + tag
	}
	path := filepath.Join(s.snapshotDir(), base+".csv")
	var buf bytes.Buffer
	if err := writeCSV(&buf, records); err != nil {
		return "", err
	}
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// ReadSnapshot loads a snapshot written by SaveSnapshot.
func ReadSnapshot(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readCSV(f)
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
