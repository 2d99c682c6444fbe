// Package artifact writes batch output files. The CSV is the primary
// artifact and is appended row by row as the session runs, so an interrupted
// session still leaves a readable file. The PDF table is rendered once at
// close from the session's buffered rows.
package artifact

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oklog/ulid/v2"
)

// Store manages the files of one batch session, identified by a ULID handle.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// NewHandle mints the identifier for a session's artifacts. ULIDs sort by
// creation time, so a directory listing doubles as a session history.
func (s *Store) NewHandle() string {
	return ulid.Make().String()
}

func (s *Store) CSVPath(handle string) string {
	return filepath.Join(s.dir, handle+".csv")
}

func (s *Store) PDFPath(handle string) string {
	return filepath.Join(s.dir, handle+".pdf")
}

// CreateCSV opens the primary artifact and writes the header row.
func (s *Store) CreateCSV(handle string, fields []string) (*CSVArtifact, error) {
	f, err := os.OpenFile(s.CSVPath(handle), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create csv artifact: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(fields); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	w.Flush()
	return &CSVArtifact{file: f, writer: w}, nil
}

// Remove deletes whatever artifacts exist for the handle. Missing files are
// not an error; Remove runs on every abort path.
func (s *Store) Remove(handle string) {
	os.Remove(s.CSVPath(handle))
	os.Remove(s.PDFPath(handle))
}

// CSVArtifact is an open, append-only primary artifact.
type CSVArtifact struct {
	file   *os.File
	writer *csv.Writer
}

func (a *CSVArtifact) Append(rows [][]string) error {
	for _, row := range rows {
		if err := a.writer.Write(row); err != nil {
			return fmt.Errorf("append csv row: %w", err)
		}
	}
	a.writer.Flush()
	if err := a.writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func (a *CSVArtifact) Close() error {
	a.writer.Flush()
	werr := a.writer.Error()
	cerr := a.file.Close()
	if werr != nil {
		return werr
	}
	return cerr
}
