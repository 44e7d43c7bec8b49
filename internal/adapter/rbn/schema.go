package rbn

import (
	"fmt"
	"strings"

	"github.com/couchcryptid/rbn-top-calls/internal/domain"
)

// Schema identifies one of the CSV layouts found in RBN archives.
type Schema int

const (
	SchemaUnknown Schema = iota
	// SchemaTelegraphy is the headered layout introduced for the telegraphy archives.
	SchemaTelegraphy
	// SchemaFull is the headerless 15-column layout.
	SchemaFull
	// SchemaShort is the older headerless 13-column layout.
	SchemaShort
)

func (s Schema) String() string {
	switch s {
	case SchemaTelegraphy:
		return "telegraphy"
	case SchemaFull:
		return "full"
	case SchemaShort:
		return "short"
	default:
		return "unknown"
	}
}

// ParseSchema maps a schema name back to its Schema.
func ParseSchema(name string) (Schema, error) {
	for _, s := range []Schema{SchemaTelegraphy, SchemaFull, SchemaShort} {
		if strings.EqualFold(name, s.String()) {
			return s, nil
		}
	}
	return SchemaUnknown, fmt.Errorf("unknown schema %q", name)
}

const telegraphyHeaderPrefix = "callsign,de_pfx,de_cont,freq"

// telegraphyColumns is the header line of telegraphy archives.
var telegraphyColumns = []string{
	"callsign", "de_pfx", "de_cont", "freq", "band", "dx", "dx_pfx",
	"dx_cont", "mode", "db", "date", "speed", "tx_mode",
}

// fullColumns names the headerless columns. The short layout is the first 13.
var fullColumns = []string{
	"poster", "poster_country_prefix", "poster_continent", "freq_khz", "band",
	"dx", "dx_country_prefix", "dx_continent", "cq", "snr_db", "datetime_utc",
	"wpm", "mode", "date_compact", "epoch",
}

var shortColumns = fullColumns[:13]

// sniff decides the layout from the first record of the CSV.
func sniff(first []string) (Schema, error) {
	joined := strings.ToLower(strings.Join(first, ","))
	if strings.HasPrefix(joined, telegraphyHeaderPrefix) {
		return SchemaTelegraphy, nil
	}
	switch len(first) {
	case len(fullColumns):
		return SchemaFull, nil
	case len(shortColumns):
		return SchemaShort, nil
	}
	return SchemaUnknown, fmt.Errorf("%w: %d columns", ErrUnknownSchema, len(first))
}

// headerlessRow picks the four relevant columns of the full and short layouts.
type headerlessRow struct {
	SourcePrefix string `csv:"poster_country_prefix"`
	DX           string `csv:"dx"`
	Mode         string `csv:"mode"`
	Band         string `csv:"band"`
}

func (r headerlessRow) spot() domain.Spot {
	return domain.Spot{SourcePrefix: r.SourcePrefix, DX: r.DX, Mode: r.Mode, Band: r.Band}
}

// telegraphyRow picks the four relevant columns of the headered layout. Its
// "mode" column holds the spot type (CQ, BEACON); the transmission mode is tx_mode.
type telegraphyRow struct {
	SourcePrefix string `csv:"de_pfx"`
	DX           string `csv:"dx"`
	Mode         string `csv:"tx_mode"`
	Band         string `csv:"band"`
}

func (r telegraphyRow) spot() domain.Spot {
	return domain.Spot{SourcePrefix: r.SourcePrefix, DX: r.DX, Mode: r.Mode, Band: r.Band}
}
