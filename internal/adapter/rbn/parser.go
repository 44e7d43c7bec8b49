package rbn

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/couchcryptid/rbn-top-calls/internal/domain"
	"github.com/jszwec/csvutil"
	"github.com/klauspost/compress/zip"
)

var (
	// ErrCorruptArchive is returned when a file cannot be read as a ZIP.
	ErrCorruptArchive = errors.New("corrupt archive")
	// ErrNoCSVMember is returned when an archive holds no .csv file.
	ErrNoCSVMember = errors.New("archive has no csv member")
	// ErrUnknownSchema is returned when the CSV matches none of the known layouts.
	ErrUnknownSchema = errors.New("unrecognized csv layout")
	// ErrEmptyCSV is returned when the CSV member has no records.
	ErrEmptyCSV = errors.New("csv member is empty")
)

// Archive is the decoded content of one daily archive. Skipped counts the
// records dropped because their width did not match the layout.
type Archive struct {
	Member  string
	Schema  Schema
	Table   domain.Table
	Skipped int
}

// Parser implements pipeline.Parser over archives on local disk. Logger, if
// set, receives a warning for archives with skipped records.
type Parser struct {
	Logger *slog.Logger
}

// Parse returns the normalized spots of the archive at path.
func (p Parser) Parse(path string) (domain.Table, error) {
	a, err := ReadArchive(path)
	if err != nil {
		return nil, err
	}
	if a.Skipped > 0 && p.Logger != nil {
		p.Logger.Warn("skipped malformed records",
			"path", path, "schema", a.Schema.String(), "skipped", a.Skipped, "kept", len(a.Table))
	}
	return a.Table, nil
}

// ParseArchive returns the normalized spots of the archive at path.
func ParseArchive(path string) (domain.Table, error) {
	a, err := ReadArchive(path)
	if err != nil {
		return nil, err
	}
	return a.Table, nil
}

// ReadArchive opens the ZIP at path, picks its first CSV member, and decodes it.
func ReadArchive(path string) (Archive, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return Archive{}, fmt.Errorf("%w: %s: %w", ErrCorruptArchive, path, err)
	}
	defer zr.Close()

	member := firstCSV(zr.File)
	if member == nil {
		return Archive{}, fmt.Errorf("%w: %s", ErrNoCSVMember, path)
	}

	rc, err := member.Open()
	if err != nil {
		return Archive{}, fmt.Errorf("%w: open %s in %s: %w", ErrCorruptArchive, member.Name, path, err)
	}
	defer rc.Close()

	a, err := Decode(rc)
	if err != nil {
		return Archive{}, fmt.Errorf("decode %s in %s: %w", member.Name, path, err)
	}
	a.Member = member.Name
	return a, nil
}

func firstCSV(files []*zip.File) *zip.File {
	for _, f := range files {
		if strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
			return f
		}
	}
	return nil
}

// Decode reads an RBN CSV stream in any of the known layouts. The layout is
// chosen from the first record; later records of a different width are
// skipped and counted.
func Decode(r io.Reader) (Archive, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	first, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Archive{}, ErrEmptyCSV
	}
	if err != nil {
		return Archive{}, fmt.Errorf("read first record: %w", err)
	}

	schema, err := sniff(first)
	if err != nil {
		return Archive{Schema: schema}, err
	}

	var (
		table domain.Table
		rows  *uniformReader
	)
	switch schema {
	case SchemaTelegraphy:
		header := make([]string, len(first))
		for i, h := range first {
			header[i] = strings.ToLower(strings.TrimSpace(h))
		}
		rows = &uniformReader{r: cr, width: len(header)}
		table, err = decodeRows[telegraphyRow](rows, header)
	case SchemaFull:
		rows = &uniformReader{r: &replayReader{first: first, r: cr}, width: len(fullColumns)}
		table, err = decodeRows[headerlessRow](rows, fullColumns)
	case SchemaShort:
		rows = &uniformReader{r: &replayReader{first: first, r: cr}, width: len(shortColumns)}
		table, err = decodeRows[headerlessRow](rows, shortColumns)
	}
	if err != nil {
		return Archive{Schema: schema}, err
	}
	return Archive{Schema: schema, Table: table, Skipped: rows.skipped}, nil
}

type row interface {
	spot() domain.Spot
}

func decodeRows[T row](r csvutil.Reader, header []string) (domain.Table, error) {
	dec, err := csvutil.NewDecoder(r, header...)
	if err != nil {
		return nil, fmt.Errorf("create csv decoder: %w", err)
	}
	dec.DisallowMissingColumns = true

	var table domain.Table
	for {
		var v T
		if err := dec.Decode(&v); err != nil {
			if errors.Is(err, io.EOF) {
				return table, nil
			}
			return nil, fmt.Errorf("record %d: %w", len(table)+1, err)
		}
		table = append(table, v.spot())
	}
}

// uniformReader drops records whose width differs from the layout.
type uniformReader struct {
	r       csvutil.Reader
	width   int
	skipped int
}

func (u *uniformReader) Read() ([]string, error) {
	for {
		rec, err := u.r.Read()
		if err != nil || len(rec) == u.width {
			return rec, err
		}
		u.skipped++
	}
}

// replayReader hands back the already-sniffed first record before reading on.
type replayReader struct {
	first []string
	r     *csv.Reader
}

func (p *replayReader) Read() ([]string, error) {
	if p.first != nil {
		rec := p.first
		p.first = nil
		return rec, nil
	}
	return p.r.Read()
}
