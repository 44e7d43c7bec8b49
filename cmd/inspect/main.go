// Command inspect checks every archive in a cache directory: it reports the
// detected layout, row and match counts per day, flags corrupt or empty
// files, and lists days missing from the covered range.
//
// Usage:
//
//	go run ./cmd/inspect -dir data -band 20m
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/rbn-top-calls/internal/adapter/rbn"
	"github.com/couchcryptid/rbn-top-calls/internal/config"
	"github.com/couchcryptid/rbn-top-calls/internal/domain"
	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
)

// phase tracks pass/fail for one group of checks.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// archiveInfo is what inspect learned about one file.
type archiveInfo struct {
	name    string
	day     time.Time
	size    int64
	schema  rbn.Schema
	rows    int
	matched int
	err     error
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: %v\n", err)
		return 2
	}

	fset := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fset.SetOutput(stderr)
	dir := fset.String("dir", cfg.DataDir, "archive cache directory")
	mode := fset.String("mode", cfg.Filter.Mode, "mode to count as matching")
	prefix := fset.String("prefix", cfg.Filter.Prefix, "skimmer prefix to count as matching")
	band := fset.String("band", cfg.Filter.Band, "band to count as matching, or all")
	if err := fset.Parse(args); err != nil {
		return 2
	}
	filter := domain.Filter{Mode: *mode, Prefix: *prefix, Band: *band}

	paths, err := filepath.Glob(filepath.Join(*dir, "*.zip"))
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: list %s: %v\n", *dir, err)
		return 2
	}
	slices.Sort(paths)

	fmt.Fprintf(stdout, "=== RBN archive inspection: %s ===\n\n", *dir)
	if len(paths) == 0 {
		fmt.Fprintln(stdout, "No archives found.")
		return 1
	}

	infos := make([]archiveInfo, 0, len(paths))
	for _, path := range paths {
		infos = append(infos, inspect(path, filter))
	}

	phases := []*phase{
		checkNames(infos),
		checkReadable(infos),
	}

	fmt.Fprintf(stdout, "  %-14s %-11s %10s %12s %10s\n", "archive", "layout", "size", "rows", "matched")
	var rows, matched int
	for _, a := range infos {
		layout := a.schema.String()
		if a.err != nil {
			layout = "FAILED"
		}
		fmt.Fprintf(stdout, "  %-14s %-11s %10s %12s %10s\n", a.name, layout,
			humanize.Bytes(uint64(a.size)), humanize.Comma(int64(a.rows)), humanize.Comma(int64(a.matched)))
		rows += a.rows
		matched += a.matched
	}

	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "Archives: %d, rows: %s, matching %s/%s/%s: %s\n", len(infos),
		humanize.Comma(int64(rows)), filter.Mode, filter.Prefix, filter.Band, humanize.Comma(int64(matched)))
	if gaps := missingDays(infos); len(gaps) > 0 {
		fmt.Fprintf(stdout, "Missing days in range: %d (%s)\n", len(gaps), strings.Join(gaps, ", "))
	}

	fmt.Fprintln(stdout)
	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(stdout, "  %-30s %s\n", p.name, status)
	}
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(stdout, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(stdout, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(stdout, "\nAll archives are readable.")
		return 0
	}
	fmt.Fprintln(stdout, "\nInspection FAILED.")
	return 1
}

func inspect(path string, f domain.Filter) archiveInfo {
	info := archiveInfo{name: filepath.Base(path)}
	if day, err := time.Parse(domain.StemLayout, strings.TrimSuffix(info.name, ".zip")); err == nil {
		info.day = day
	}
	if st, err := os.Stat(path); err == nil {
		info.size = st.Size()
	}

	a, err := rbn.ReadArchive(path)
	if err != nil {
		info.err = err
		return info
	}
	info.schema = a.Schema
	info.rows = len(a.Table)
	info.matched = len(f.Select(a.Table))
	return info
}

func checkNames(infos []archiveInfo) *phase {
	p := &phase{name: "Archive names are YYYYMMDD.zip"}
	for _, a := range infos {
		if a.day.IsZero() {
			p.errorf("%s: name is not a date", a.name)
		}
	}
	return p
}

func checkReadable(infos []archiveInfo) *phase {
	p := &phase{name: "Archives decode"}
	for _, a := range infos {
		if a.err != nil {
			p.errorf("%s: %v", a.name, a.err)
		}
	}
	return p
}

// missingDays lists the days between the first and last dated archive that
// have no archive.
func missingDays(infos []archiveInfo) []string {
	have := map[string]bool{}
	var first, last time.Time
	for _, a := range infos {
		if a.day.IsZero() {
			continue
		}
		have[domain.DayStem(a.day)] = true
		if first.IsZero() || a.day.Before(first) {
			first = a.day
		}
		if a.day.After(last) {
			last = a.day
		}
	}
	if first.IsZero() {
		return nil
	}
	var gaps []string
	for d := range domain.Days(first, last) {
		if !have[domain.DayStem(d)] {
			gaps = append(gaps, d.Format(domain.DayLayout))
		}
	}
	return gaps
}
