package rbn

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/rbn-top-calls/internal/domain"
	"github.com/klauspost/compress/zip"
)

// bandFrequencyKHz gives a representative CW frequency per band for generated records.
var bandFrequencyKHz = map[string]float64{
	"160m": 1822.0, "80m": 3525.0, "60m": 5354.0, "40m": 7025.0, "30m": 10115.0,
	"20m": 14025.0, "17m": 18075.0, "15m": 21025.0, "12m": 24895.0, "10m": 28025.0,
}

// Header returns the header line for schema, or nil for headerless layouts.
func Header(schema Schema) []string {
	if schema == SchemaTelegraphy {
		return append([]string(nil), telegraphyColumns...)
	}
	return nil
}

// Record encodes s as a CSV record in the given layout. Columns the pipeline
// ignores are filled with plausible values derived from poster and at.
func Record(schema Schema, s domain.Spot, poster string, at time.Time) []string {
	freq := strconv.FormatFloat(bandFrequencyKHz[s.Band], 'f', 1, 64)
	stamp := at.UTC().Format(time.DateTime)

	switch schema {
	case SchemaTelegraphy:
		return []string{
			poster, s.SourcePrefix, "EU", freq, s.Band, s.DX, "", "", "CQ", "12", stamp, "24", s.Mode,
		}
	case SchemaShort:
		return fullRecord(s, poster, freq, stamp)[:len(shortColumns)]
	default:
		rec := fullRecord(s, poster, freq, stamp)
		rec[13] = domain.DayStem(at)
		rec[14] = strconv.FormatInt(at.Unix(), 10)
		return rec
	}
}

func fullRecord(s domain.Spot, poster, freq, stamp string) []string {
	return []string{
		poster, s.SourcePrefix, "EU", freq, s.Band, s.DX, "", "", "CQ", "12", stamp, "24", s.Mode, "", "",
	}
}

// WriteArchive writes records as a single CSV member of a new ZIP at path.
func WriteArchive(path, member string, records [][]string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer func() { err = errors.Join(err, f.Close()) }()

	zw := zip.NewWriter(f)
	w, err := zw.Create(member)
	if err != nil {
		return fmt.Errorf("create member %s: %w", member, err)
	}
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write member %s: %w", member, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}
	return nil
}
