// Package export writes a ranking as the plain callsign list and the counted CSV.
package export

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/couchcryptid/rbn-top-calls/internal/domain"
	"github.com/jszwec/csvutil"
)

// ErrNothingToWrite is returned by WriteFiles when there are no entries.
var ErrNothingToWrite = errors.New("nothing to write")

// WriteText writes one callsign per line in ranked order.
func WriteText(w io.Writer, entries []domain.Entry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		if _, err := bw.WriteString(e.Callsign + "\n"); err != nil {
			return fmt.Errorf("write callsign: %w", err)
		}
	}
	return bw.Flush()
}

// WriteCSV writes a callsign,count header followed by one row per entry.
func WriteCSV(w io.Writer, entries []domain.Entry) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if err := enc.EncodeHeader(domain.Entry{}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("encode %s: %w", e.Callsign, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFiles writes both artifacts. Each file is replaced atomically, and
// nothing is touched when entries is empty.
func WriteFiles(txtPath, csvPath string, entries []domain.Entry) error {
	if len(entries) == 0 {
		return ErrNothingToWrite
	}
	if err := writeFile(txtPath, func(w io.Writer) error { return WriteText(w, entries) }); err != nil {
		return err
	}
	return writeFile(csvPath, func(w io.Writer) error { return WriteCSV(w, entries) })
}

func writeFile(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	writeErr := write(tmp)
	chmodErr := tmp.Chmod(0o644)
	closeErr := tmp.Close()
	if err := errors.Join(writeErr, chmodErr, closeErr); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("move %s into place: %w", path, err)
	}
	return nil
}
