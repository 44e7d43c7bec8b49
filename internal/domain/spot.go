package domain

// BandAll disables band filtering.
const BandAll = "all"

// Bands lists the band choices offered to users, BandAll first.
var Bands = []string{BandAll, "160m", "80m", "60m", "40m", "30m", "20m", "17m", "15m", "12m", "10m"}

// Spot is the normalized four-column view of one RBN spot.
type Spot struct {
	SourcePrefix string // poster's country prefix
	DX           string // transmitting callsign
	Mode         string
	Band         string
}

// Table holds the normalized spots of one daily archive.
type Table []Spot

// Filter selects the spots that count towards a ranking.
type Filter struct {
	Mode   string `json:"mode" yaml:"mode"`
	Prefix string `json:"prefix" yaml:"prefix"`
	Band   string `json:"band,omitempty" yaml:"band"`
}

// BandActive reports whether the filter restricts bands.
func (f Filter) BandActive() bool {
	return f.Band != "" && f.Band != BandAll
}

// Matches reports whether s passes the filter. Comparisons are exact and
// case-sensitive, matching how values are stored in the archives.
func (f Filter) Matches(s Spot) bool {
	if s.Mode != f.Mode || s.SourcePrefix != f.Prefix {
		return false
	}
	return !f.BandActive() || s.Band == f.Band
}

// Select returns the rows of t that match f.
func (f Filter) Select(t Table) Table {
	var out Table
	for _, s := range t {
		if f.Matches(s) {
			out = append(out, s)
		}
	}
	return out
}
