// Command genarchive writes synthetic daily RBN archives into a cache
// directory so the batch command and the dashboard can run offline.
//
// Usage:
//
//	go run ./cmd/genarchive -dir data -from 2025-01-01 -to 2025-01-31 -spots 5000
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/rbn-top-calls/internal/adapter/rbn"
	"github.com/couchcryptid/rbn-top-calls/internal/domain"
	"github.com/dustin/go-humanize"
)

type options struct {
	dir      string
	from, to time.Time
	spots    int
	calls    int
	schema   string
	seed     int64
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	fset := flag.NewFlagSet("genarchive", flag.ContinueOnError)
	dir := fset.String("dir", "data", "output directory")
	from := fset.String("from", "2025-01-01", "first day YYYY-MM-DD")
	to := fset.String("to", "2025-01-07", "last day YYYY-MM-DD")
	spots := fset.Int("spots", 2000, "spots per day")
	calls := fset.Int("calls", 300, "distinct DX callsigns")
	schema := fset.String("schema", "mixed", "layout: full, short, telegraphy, or mixed")
	seed := fset.Int64("seed", 1, "random seed")
	if err := fset.Parse(args); err != nil {
		return err
	}

	opts := options{dir: *dir, spots: *spots, calls: *calls, schema: *schema, seed: *seed}
	var err error
	if opts.from, err = domain.ParseDay(*from); err != nil {
		return err
	}
	if opts.to, err = domain.ParseDay(*to); err != nil {
		return err
	}
	if opts.to.Before(opts.from) {
		return fmt.Errorf("end date %s is before start date %s", *to, *from)
	}
	if opts.spots < 1 || opts.calls < 2 {
		return fmt.Errorf("need at least 1 spot per day and 2 callsigns")
	}
	if opts.schema != "mixed" {
		if _, err := rbn.ParseSchema(opts.schema); err != nil {
			return err
		}
	}
	return generate(opts)
}

var (
	dxPrefixes = []string{"W", "K", "N", "DL", "G", "JA", "SP", "OK", "F", "I", "EA", "VE", "UA", "OH", "PA"}
	skimmers   = []weighted{{"SP", 40}, {"DL", 25}, {"OK", 15}, {"G", 10}, {"HA", 10}}
	modes      = []weighted{{"CW", 80}, {"RTTY", 10}, {"FT8", 10}}
	mixedOrder = []rbn.Schema{rbn.SchemaFull, rbn.SchemaShort, rbn.SchemaTelegraphy}
)

type weighted struct {
	value  string
	weight int
}

func pick(r *rand.Rand, choices []weighted) string {
	total := 0
	for _, c := range choices {
		total += c.weight
	}
	n := r.Intn(total)
	for _, c := range choices {
		if n < c.weight {
			return c.value
		}
		n -= c.weight
	}
	return choices[len(choices)-1].value
}

// callsign derives a stable callsign for index i.
func callsign(i int) string {
	prefix := dxPrefixes[i%len(dxPrefixes)]
	digit := (i / len(dxPrefixes)) % 10
	n := i / (len(dxPrefixes) * 10)
	suffix := []byte{byte('A' + n/676%26), byte('A' + n/26%26), byte('A' + n%26)}
	return fmt.Sprintf("%s%d%s", prefix, digit, suffix)
}

func generate(opts options) error {
	if err := os.MkdirAll(opts.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	r := rand.New(rand.NewSource(opts.seed)) //nolint:gosec // fixture data
	zipf := rand.NewZipf(r, 1.3, 1, uint64(opts.calls-1))
	bands := domain.Bands[1:]

	var total, matching int
	day := 0
	for d := range domain.Days(opts.from, opts.to) {
		schema := schemaFor(opts.schema, day)
		day++

		var recs [][]string
		if h := rbn.Header(schema); h != nil {
			recs = append(recs, h)
		}
		for i := 0; i < opts.spots; i++ {
			s := domain.Spot{
				SourcePrefix: pick(r, skimmers),
				DX:           callsign(int(zipf.Uint64())),
				Mode:         pick(r, modes),
				Band:         bands[r.Intn(len(bands))],
			}
			if s.SourcePrefix == "SP" && s.Mode == "CW" {
				matching++
			}
			poster := fmt.Sprintf("%s%dXYZ-#", s.SourcePrefix, r.Intn(10))
			at := d.Add(time.Duration(r.Intn(86400)) * time.Second)
			recs = append(recs, rbn.Record(schema, s, poster, at))
		}

		stem := domain.DayStem(d)
		path := filepath.Join(opts.dir, stem+".zip")
		if err := rbn.WriteArchive(path, stem+".csv", recs); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		total += opts.spots
		log.Printf("%s: %s spots (%s)", path, humanize.Comma(int64(opts.spots)), schema)
	}

	log.Printf("total: %s spots over %d days, %s CW spots from SP skimmers",
		humanize.Comma(int64(total)), day, humanize.Comma(int64(matching)))
	return nil
}

func schemaFor(name string, day int) rbn.Schema {
	if name == "mixed" {
		return mixedOrder[day%len(mixedOrder)]
	}
	s, _ := rbn.ParseSchema(name)
	return s
}
