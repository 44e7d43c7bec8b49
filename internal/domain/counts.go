package domain

import (
	"cmp"
	"slices"
)

// Counts maps a DX callsign to the number of matching spots.
type Counts map[string]int

// Entry is one ranked callsign.
type Entry struct {
	Callsign string `csv:"callsign" json:"callsign"`
	Count    int    `csv:"count" json:"count"`
}

// Tally counts the DX callsigns of the rows in t that match f.
func Tally(t Table, f Filter) Counts {
	c := Counts{}
	for _, s := range t {
		if f.Matches(s) {
			c[s.DX]++
		}
	}
	return c
}

// Merge adds other into c element-wise.
func (c Counts) Merge(other Counts) {
	for call, n := range other {
		c[call] += n
	}
}

// Fold adds one archive's matching spots to the running counts and returns
// them. running is left untouched when nothing matches.
func Fold(t Table, f Filter, running Counts) Counts {
	if running == nil {
		running = Counts{}
	}
	day := Tally(t, f)
	if len(day) == 0 {
		return running
	}
	running.Merge(day)
	return running
}

// Total returns the sum of all counts.
func (c Counts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Top returns the n most frequent callsigns, highest count first. Equal
// counts are ordered by callsign.
func (c Counts) Top(n int) []Entry {
	if n <= 0 || len(c) == 0 {
		return nil
	}
	entries := make([]Entry, 0, len(c))
	for call, count := range c {
		entries = append(entries, Entry{Callsign: call, Count: count})
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		if a.Count != b.Count {
			return cmp.Compare(b.Count, a.Count)
		}
		return cmp.Compare(a.Callsign, b.Callsign)
	})
	if n < len(entries) {
		entries = entries[:n]
	}
	return entries
}
