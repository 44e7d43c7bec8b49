package domain

import "time"

// Ranking is the published result of one run.
type Ranking struct {
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
	Filter      Filter    `json:"filter"`
	Entries     []Entry   `json:"entries"`
	GeneratedAt time.Time `json:"generated_at"`
}

// NewRanking takes the top n entries of counts for the given range and filter.
func NewRanking(from, to time.Time, f Filter, counts Counts, n int) Ranking {
	return Ranking{
		From:        from,
		To:          to,
		Filter:      f,
		Entries:     counts.Top(n),
		GeneratedAt: clock.Now().UTC(),
	}
}

