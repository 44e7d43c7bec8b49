// Package domain models Reverse Beacon Network (RBN) spot data and the
// counting rules used to rank transmitting stations.
//
// # Data Source
//
// The RBN publishes one ZIP archive per UTC day at
// https://data.reversebeacon.net/rbn_history/YYYYMMDD.zip. Each archive holds a
// single CSV of every spot reported by the network's skimmers that day.
//
// # Archive Layouts
//
// Three CSV layouts have been published over the years:
//
//	Telegraphy (headered):
//	  callsign,de_pfx,de_cont,freq,band,dx,dx_pfx,dx_cont,mode,db,date,speed,tx_mode
//	Full (headerless, 15 columns):
//	  poster,poster_country_prefix,poster_continent,freq_khz,band,dx,
//	  dx_country_prefix,dx_continent,cq,snr_db,datetime_utc,wpm,mode,date_compact,epoch
//	Short (headerless, 13 columns):
//	  the full layout without date_compact and epoch.
//
// Only four columns matter downstream and every layout maps onto them: the
// skimmer's country prefix, the DX callsign, the transmission mode and the
// band. All four are kept as text; "SP" and "20m" are labels, not numbers.
//
// # Terminology
//
//	Poster / skimmer: the monitoring station that reported the spot ("de").
//	DX:               the station that was heard. DX callsigns are ranked.
//	Prefix:           the poster's country prefix, e.g. "SP" for Poland.
//
// # Counting
//
// A run folds each day's matching spots into a single [Counts] map owned by
// the run. Folding is addition, so the final counts do not depend on the order
// days are processed in. [Counts.Top] breaks count ties by callsign so the
// ranking is deterministic as well.
package domain
